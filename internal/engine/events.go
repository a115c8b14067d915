// ABOUTME: Engine events and subscriber fan-out
// ABOUTME: Slow subscribers drop events instead of blocking exports
package engine

import (
	"log"
	"time"
)

// EventType names what happened
type EventType string

const (
	EventExportDone   EventType = "export/done"
	EventExportFailed EventType = "export/failed"
	EventExportEmpty  EventType = "export/empty"
	EventScan         EventType = "scan"
)

// Event is published for every export and speaker list change
type Event struct {
	Type     EventType `json:"type"`
	Speaker  string    `json:"speaker,omitempty"`
	Path     string    `json:"path,omitempty"`
	Duration float64   `json:"duration,omitempty"`
	Error    string    `json:"error,omitempty"`
	Speakers []string  `json:"speakers,omitempty"`
	Time     time.Time `json:"time"`
}

const subscriberBuffer = 32

// Subscribe returns a channel of future events and a func that ends the
// subscription and closes the channel
func (e *Engine) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch
	e.subsMu.Unlock()

	cancel := func() {
		e.subsMu.Lock()
		if _, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(ch)
		}
		e.subsMu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}

	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("Dropping %s event for slow subscriber %d", ev.Type, id)
		}
	}
}
