// Package api exposes the MJPEG stream and its control surface over HTTP:
// the multipart stream endpoint, a JSON status API, a websocket status
// feed, Prometheus metrics, and a minimal built-in viewer page.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/slidestream/slidestream/internal/config"
	"github.com/slidestream/slidestream/internal/logger"
	"github.com/slidestream/slidestream/internal/metrics"
	"github.com/slidestream/slidestream/internal/mjpeg"
)

// Server represents the HTTP API server
type Server struct {
	router      *mux.Router
	configMgr   *config.Manager
	broadcaster *mjpeg.Broadcaster
	metrics     *metrics.Metrics
	upgrader    websocket.Upgrader
}

// NewServer creates a new API server
func NewServer(configMgr *config.Manager, broadcaster *mjpeg.Broadcaster, m *metrics.Metrics) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		configMgr:   configMgr,
		broadcaster: broadcaster,
		metrics:     m,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins for development
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// The live stream
	s.router.HandleFunc("/stream", s.broadcaster.StreamHandler())

	// API routes
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/status/ws", s.handleStatusStream)

	// Configuration
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/config", s.handleUpdateConfig).Methods("PUT")

	// Health check
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Prometheus metrics
	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler())
	}

	// Built-in viewer page
	s.router.PathPrefix("/").HandlerFunc(s.handleIndex)
}

// Start runs the HTTP server until ctx is canceled, then shuts it down
// gracefully, disconnecting stream subscribers last.
func (s *Server) Start(ctx context.Context, bindAddr string, port int) error {
	addr := fmt.Sprintf("%s:%d", bindAddr, port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.enableCORS(s.router),
	}

	logger.WithComponent("api").Info().Str("addr", addr).Msg("Starting server")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.broadcaster.Stop()
		return err
	})
	return g.Wait()
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// HTTP Handlers

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.broadcaster.Snapshot())
}

// handleStatusStream pushes the broadcaster stats over a websocket once a
// second until the client goes away.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithComponent("api").Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(s.broadcaster.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := conn.WriteJSON(s.broadcaster.Snapshot()); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.configMgr.Get())
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Reject configs the stream could not restart with.
	if _, err := cfg.StreamSettings(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.configMgr.Update(&cfg); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	html := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>SlideStream</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Oxygen, Ubuntu, Cantarell, sans-serif;
            max-width: 1000px;
            margin: 30px auto;
            padding: 20px;
            background: #111;
            color: #eee;
        }
        h1 { margin-top: 0; }
        img.stream {
            width: 100%;
            background: #000;
            border-radius: 6px;
        }
        .info { color: #999; line-height: 1.6; }
        a { color: #64b5f6; text-decoration: none; }
        a:hover { text-decoration: underline; }
        code {
            background: #222;
            padding: 2px 6px;
            border-radius: 3px;
            font-family: 'Courier New', monospace;
        }
    </style>
</head>
<body>
    <h1>SlideStream</h1>
    <img class="stream" src="/stream" alt="live stream">
    <div class="info">
        <h3>API Endpoints:</h3>
        <ul>
            <li><a href="/api/health">/api/health</a> - Server health check</li>
            <li><a href="/api/status">/api/status</a> - Stream status</li>
            <li><a href="/api/config">/api/config</a> - View configuration</li>
            <li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
        </ul>
        <p>Point any MJPEG-capable player at <code>/stream</code>.</p>
    </div>
</body>
</html>`

	if r.URL.Path == "/" {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(html))
		return
	}

	if !strings.HasPrefix(r.URL.Path, "/api") {
		http.NotFound(w, r)
	}
}
