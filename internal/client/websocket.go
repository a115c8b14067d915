// ABOUTME: Client for the SoundFlex sync service
// ABOUTME: Follows the WebSocket event stream and calls the speaker HTTP API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soundflex/soundflex-go/internal/engine"
	"github.com/soundflex/soundflex-go/internal/syncroot"
)

// Config holds client configuration
type Config struct {
	// ServerAddr is host:port of the sync service
	ServerAddr string
	// Timeout bounds each HTTP call; zero selects 30 seconds
	Timeout time.Duration
}

// Client talks to one sync service
type Client struct {
	config Config
	http   *http.Client
	conn   *websocket.Conn
	mu     sync.RWMutex

	// Events receives the event stream after Connect. It is closed when the
	// connection ends.
	Events chan engine.Event

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// ExportResult is the service's reply to an export
type ExportResult struct {
	Speaker  string  `json:"speaker"`
	Path     string  `json:"path"`
	Duration float64 `json:"duration"`
	Clips    int     `json:"clips"`
	Empty    bool    `json:"empty"`
}

// NewClient creates a new client
func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		Events: make(chan engine.Event, 100),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect opens the event stream
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: "/events"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages()

	return nil
}

// readMessages decodes events until the connection ends
func (c *Client) readMessages() {
	defer close(c.Events)
	defer c.Close()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				log.Printf("Read error: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var ev engine.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("Failed to parse event: %v", err)
			continue
		}

		select {
		case c.Events <- ev:
		case <-c.ctx.Done():
			return
		}
	}
}

// Speakers lists the speakers the service knows about
func (c *Client) Speakers(ctx context.Context) ([]syncroot.Speaker, error) {
	var speakers []syncroot.Speaker
	if err := c.call(ctx, http.MethodGet, "/speakers", http.StatusOK, &speakers); err != nil {
		return nil, err
	}
	return speakers, nil
}

// RequestExport asks the service to export the speaker on its next poll
func (c *Client) RequestExport(ctx context.Context, speaker string) error {
	return c.call(ctx, http.MethodPost, "/speakers/"+url.PathEscape(speaker)+"/request", http.StatusAccepted, nil)
}

// Export runs an export on the service and waits for it to finish
func (c *Client) Export(ctx context.Context, speaker string) (*ExportResult, error) {
	var result ExportResult
	if err := c.call(ctx, http.MethodPost, "/speakers/"+url.PathEscape(speaker)+"/export", http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) call(ctx context.Context, method, path string, want int, out any) error {
	u := url.URL{Scheme: "http", Host: c.config.ServerAddr, Path: path}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		var body struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			return fmt.Errorf("%s %s: %s (%d)", method, path, body.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
