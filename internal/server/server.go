package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jpalmerr/mqmon/internal/ingest"
	"github.com/jpalmerr/mqmon/internal/metrics"
	"github.com/jpalmerr/mqmon/internal/store"
	"github.com/rs/cors"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write operation.
	// Must be <= shutdown timeout to ensure clean shutdown.
	sseWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// maxIngestBodySize caps POST /ingest bodies. A reading is a few dozen bytes.
	maxIngestBodySize = 64 << 10

	// requestIDHeader carries the per-request correlation ID.
	requestIDHeader = "X-Request-ID"

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "MQ Live Monitor"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"
)

// Config holds the listener and presentation settings for a [Server].
type Config struct {
	// Host is the interface to bind. Empty binds all interfaces.
	Host string

	// Port is the TCP port to listen on. Zero picks a free port.
	Port int

	// Title is the dashboard title. Defaults to "MQ Live Monitor".
	Title string

	// Assets is the filesystem holding assets/index.html. May be nil.
	Assets fs.FS

	// AllowedOrigins lists origins allowed to make cross-origin requests.
	// Empty disables CORS headers entirely.
	AllowedOrigins []string
}

// Server handles HTTP requests for the dashboard, query and ingest paths.
type Server struct {
	store      store.Store
	ingestor   *ingest.Ingestor
	metrics    *metrics.Metrics
	cfg        Config
	logger     *slog.Logger
	mux        *http.ServeMux
	httpServer *http.Server

	mu   sync.Mutex
	addr net.Addr
}

// NewServer creates a new HTTP [Server].
//
// Reads are served from st, writes go through in. The server is not started
// until [Server.Start] is called.
func NewServer(st store.Store, in *ingest.Ingestor, m *metrics.Metrics, cfg Config, logger *slog.Logger) *Server {
	s := &Server{
		store:    st,
		ingestor: in,
		metrics:  m,
		cfg:      cfg,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("GET /data", s.handleData)
	s.mux.HandleFunc("POST /ingest", s.handleIngest)
	s.mux.HandleFunc("GET /api/stream", s.handleSSE)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", m.Handler())
	if cfg.Assets != nil {
		s.mux.HandleFunc("GET /{$}", s.handleDashboard)
	}

	return s
}

// Handler returns the fully wrapped HTTP handler (instrumentation, CORS, routes).
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if len(s.cfg.AllowedOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Content-Type", requestIDHeader},
		}).Handler(h)
	}
	return s.instrument(h)
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured address.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", addr, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// enabling graceful shutdown of long-running handlers like SSE.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handleDashboard serves the chart page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

// handleData returns the retained samples as a JSON array, oldest first.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, s.store.Snapshot())
}

// handleIngest appends one reading posted by the device.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	ctx := ingest.ContextWithRequestID(r.Context(), requestID)
	if _, err := s.ingestor.Ingest(ctx, ingest.SourceHTTP, body); err != nil {
		if errors.Is(err, ingest.ErrRateLimited) {
			s.writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealth reports liveness and the current window size.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"samples": s.store.Len(),
	})
}

// handleSSE streams newly ingested samples via Server-Sent Events.
//
// Only samples appended after the client connects are sent; clients wanting
// the current window fetch /data first. The handler uses write deadlines to
// prevent goroutine leaks when clients are slow or disconnected.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// track if write deadlines are supported (may not be for some ResponseWriter impls)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	// commit headers so clients see the stream open before the first sample
	if err := rc.Flush(); err != nil {
		return
	}

	for {
		select {
		case sample, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(sample)
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// request context is derived from server context via BaseContext,
			// so this fires on both client disconnect AND server shutdown
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
