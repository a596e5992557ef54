// Package stream serves the change-notification feed to clients.
//
// The server exposes the event hub over two transports: a WebSocket
// endpoint for interactive clients and a newline-delimited JSON endpoint
// for anything that can hold an HTTP response open. Every connection gets
// the hub's recent backlog first, then live events as they are published.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/praxishq/praxis/internal/events"
)

// writeTimeout bounds a single frame write so one stalled client cannot
// hold its delivery goroutine forever.
const writeTimeout = 5 * time.Second

// Server fans hub events out to connected clients.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	hub      *events.Hub

	clientsMu sync.RWMutex
	clients   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Addr to listen on (default: ":8787")
	Addr string

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:   ":8787",
		Logger: log.Default(),
	}
}

// NewServer creates a stream server bound to a hub.
func NewServer(hub *events.Hub, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Addr == "" {
		config.Addr = ":8787"
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:   config.Addr,
		hub:    hub,
		ctx:    ctx,
		cancel: cancel,
		logger: config.Logger,
	}
}

// Start begins listening and serving connections.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// No WriteTimeout: /events holds its response open indefinitely.
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Stream server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server and disconnects all clients.
func (s *Server) Stop() error {
	s.logger.Println("Stopping stream server")

	// Cancelling the server context ends every per-connection loop.
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Stream server stopped")
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients across
// both transports.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return s.clients
}

func (s *Server) addClient() {
	s.clientsMu.Lock()
	s.clients++
	count := s.clients
	s.clientsMu.Unlock()
	s.logger.Printf("Client connected (total: %d)", count)
}

func (s *Server) removeClient() {
	s.clientsMu.Lock()
	s.clients--
	count := s.clients
	s.clientsMu.Unlock()
	s.logger.Printf("Client disconnected (total: %d)", count)
}

// handleWebSocket upgrades the connection and streams events until the
// client disconnects or the server stops.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.addClient()
	defer s.removeClient()

	sub := s.hub.Subscribe()
	defer sub.Close()

	// Surface client disconnects: the read unblocks with an error when
	// the peer goes away, which cancels the write loop below.
	connCtx, connCancel := context.WithCancel(s.ctx)
	defer connCancel()
	go func() {
		defer connCancel()
		for {
			if _, _, err := conn.Read(connCtx); err != nil {
				return
			}
		}
	}()

	for _, ev := range sub.Backlog() {
		if err := writeFrame(connCtx, conn, ev); err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}

	for {
		select {
		case <-connCtx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "hub closed")
				return
			}
			if err := writeFrame(connCtx, conn, ev); err != nil {
				s.logger.Printf("Failed to send to client: %v", err)
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}

func writeFrame(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, data)
}

// handleEvents streams events as newline-delimited JSON over a plain
// HTTP response. Useful for curl and for clients without WebSocket
// support.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	s.addClient()
	defer s.removeClient()

	sub := s.hub.Subscribe()
	defer sub.Close()

	enc := json.NewEncoder(w)
	for _, ev := range sub.Backlog() {
		if err := enc.Encode(ev); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := enc.Encode(ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":      "ok",
		"clients":     s.ClientCount(),
		"subscribers": s.hub.SubscriberCount(),
	})
}
