package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"fieldsync/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-gl/mathgl/mgl32"
)

// Server is the HTTP API server with the observer websocket.
type Server struct {
	world       WorldInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// Nothing listens until Start is called, so tests can construct the server
// and use Router() directly.
func NewServer(world WorldInterface, cfg config.ServerConfig, viewDistance float32) *Server {
	s := &Server{
		world: world,
		wsHub: NewWebSocketHub(world, HubConfig{
			MaxConnections: cfg.MaxObservers,
			SpawnPoint:     mgl32.Vec3{viewDistance, viewDistance, 0},
		}),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		World:       world,
		RateLimiter: s.rateLimiter,
	})
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Start serves HTTP on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("👁️ Observers: ws://localhost%s/ws", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the observer hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests and disconnects every observer.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wsHub.CloseAll()
	s.rateLimiter.Stop()
	return err
}
