// Package server exposes the store's operations to UI clients over
// HTTP and WebSocket. It is transport glue: every handler delegates to
// the store, the assembler or the qr helpers.
package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sparkyhq/sparky/internal/ai"
	"github.com/sparkyhq/sparky/internal/event"
	"github.com/sparkyhq/sparky/internal/store"
)

// Server serves the REST API and WebSocket event stream
type Server struct {
	addr      string
	store     *store.Store
	assembler *ai.Assembler
	bus       *event.Bus

	mu      sync.RWMutex
	clients map[string]*WSClient
	server  *http.Server
}

// New creates a server over an already-loaded store
func New(addr string, st *store.Store, assembler *ai.Assembler, bus *event.Bus) *Server {
	s := &Server{
		addr:      addr,
		store:     st,
		assembler: assembler,
		bus:       bus,
		clients:   make(map[string]*WSClient),
	}

	// Forward store events to connected UI clients
	bus.Subscribe([]string{"conversation.*", "message.*", "config.*"}, func(evt *event.Event) {
		s.broadcastEvent(evt)
	})

	return s
}

// Start blocks serving HTTP until ctx is cancelled, a shutdown signal
// arrives, or the listener fails
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/conversations", s.handleConversations)
	mux.HandleFunc("/api/conversations/", s.handleConversationByID)
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/providers", s.handleProviders)
	mux.HandleFunc("/health", s.handleHealth)

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: corsMiddleware(mux),
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on %s", s.addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("[Server] Context cancelled, shutting down...")
	case sig := <-sigChan:
		log.Printf("[Server] Received signal %s, shutting down...", sig)
	case err := <-errChan:
		log.Printf("[Server] Error: %v", err)
		return err
	}

	s.Stop()
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
	}
	log.Println("[Server] Stopped")
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
