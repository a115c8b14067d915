// ABOUTME: Sync service for SoundFlex speakers
// ABOUTME: Serves the HTTP API, streams engine events over WebSocket and runs the watcher
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soundflex/soundflex-go/internal/discovery"
	"github.com/soundflex/soundflex-go/internal/engine"
	"github.com/soundflex/soundflex-go/internal/syncroot"
	"github.com/soundflex/soundflex-go/internal/ui"
	"github.com/soundflex/soundflex-go/internal/version"
)

const (
	// clientBuffer is the per-client event queue length
	clientBuffer = 64
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	Name         string
	Root         string
	PollInterval time.Duration
	EnableMDNS   bool
	UseTUI       bool
	Debug        bool

	// CORSOrigins limits browser access; empty allows any origin
	CORSOrigins []string
}

// Server is the sync service
type Server struct {
	config   Config
	serverID string
	engine   *engine.Engine

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	router     *gin.Engine

	// Event clients
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// mDNS discovery
	mdnsManager *discovery.Manager

	// TUI
	tui       *ui.TUI
	startTime time.Time

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client is a connected event stream
type Client struct {
	ID   string
	Addr string
	Conn *websocket.Conn

	sendChan chan engine.Event
}

// New creates a new server instance
func New(config Config, eng *engine.Engine) *Server {
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		engine:   eng,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The service is meant for trusted local networks
				if origin := r.Header.Get("Origin"); origin != "" && config.Debug {
					log.Printf("[DEBUG] accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		clients:   make(map[string]*Client),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}

	s.router = s.newRouter()

	return s
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.router
}

// ID returns the server instance ID
func (s *Server) ID() string {
	return s.serverID
}

// ClientCount returns the number of connected event clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start runs the service until Stop is called, the TUI quits or the HTTP
// server fails
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = ui.NewTUI(s.config.Name, s.Addr(), s.config.Root)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
	}

	log.Printf("Server starting: %s (ID: %s, root: %s)", s.config.Name, s.serverID, s.config.Root)

	unsubscribe := s.startBroadcast()

	// Start mDNS advertisement if enabled
	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Info:        []string{"path=/speakers", "version=" + version.Version},
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	// Start the request watcher
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.engine.Watch(ctx, s.config.Root, s.config.PollInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Watcher error: %v", err)
		}
	}()

	s.httpServer = &http.Server{
		Addr:    s.Addr(),
		Handler: s.router,
	}
	log.Printf("HTTP server listening on %s", s.Addr())

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	s.updateTUI()

	// Wait for stop signal, TUI quit, or server error
	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case <-tuiQuitChan:
		log.Printf("TUI quit requested, shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	// Mark server as shutting down to reject new connections
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.tui != nil {
		s.tui.Stop()
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Hijacked WebSocket connections are not closed by Shutdown
	s.closeClients()
	unsubscribe()

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// startBroadcast forwards engine events to clients and the TUI until the
// returned func is called
func (s *Server) startBroadcast() func() {
	events, unsubscribe := s.engine.Subscribe()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range events {
			s.broadcast(ev)
			if s.tui != nil {
				s.tui.Send(ui.EventMsg(ev))
				s.updateTUI()
			}
		}
	}()

	return unsubscribe
}

// broadcast queues an event for every client, dropping it for full queues
func (s *Server) broadcast(ev engine.Event) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		select {
		case client.sendChan <- ev:
		default:
			log.Printf("Client %s send buffer full, dropping %s", client.ID, ev.Type)
		}
	}
}

func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
}

// handleEvents upgrades to a WebSocket event stream
func (s *Server) handleEvents(c *gin.Context) {
	s.shutdownMu.RLock()
	shuttingDown := s.isShutdown
	s.shutdownMu.RUnlock()
	if shuttingDown {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "shutting down"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New event client from %s", c.Request.RemoteAddr)
	s.handleConnection(conn, c.Request.RemoteAddr)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn, addr string) {
	defer conn.Close()

	client := &Client{
		ID:       uuid.New().String(),
		Addr:     addr,
		Conn:     conn,
		sendChan: make(chan engine.Event, clientBuffer),
	}

	// Greet with the current speaker list
	if speakers, err := syncroot.Scan(s.config.Root); err == nil {
		names := make([]string, len(speakers))
		for i, sp := range speakers {
			names[i] = sp.Name
		}
		client.sendChan <- engine.Event{Type: engine.EventScan, Speakers: names, Time: time.Now()}
	}

	s.clientsMu.Lock()
	s.clients[client.ID] = client
	s.clientsMu.Unlock()
	s.updateTUI()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		close(client.sendChan)
		s.clientsMu.Unlock()
		log.Printf("Event client disconnected: %s", client.Addr)
		s.updateTUI()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	// Drain reads so control frames are processed; clients send nothing else
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// clientWriter sends events to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-client.sendChan:
			if !ok {
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("Error marshaling event: %v", err)
				continue
			}
			client.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("Error writing event: %v", err)
				client.Conn.Close()
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeTimeout)); err != nil {
				client.Conn.Close()
				return
			}
		}
	}
}

// updateTUI sends the current speaker list and client count to the TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}

	speakers, err := syncroot.Scan(s.config.Root)
	if err != nil {
		log.Printf("Scan for TUI failed: %v", err)
		return
	}
	clients := s.ClientCount()
	s.tui.Send(ui.StatusMsg{Speakers: speakers, Clients: &clients})
}
