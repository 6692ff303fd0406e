package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jpalmerr/tokenwatch/internal/history"
	"github.com/jpalmerr/tokenwatch/internal/store"
)

const (
	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// HistoryReader is the subset of the history database the server uses.
type HistoryReader interface {
	Recent(ctx context.Context, identifier string, limit int) ([]history.Entry, error)
}

// Server serves the rendered status page and a read-only JSON API.
//
// Server provides four endpoints:
//   - GET /: the last rendered page file
//   - GET /api/accounts: the persisted account table
//   - GET /api/accounts/{id}/history: recent probes for one account
//   - GET /healthz: liveness
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	addr       string
	pagePath   string
	history    HistoryReader
	httpServer *http.Server
	listener   net.Listener
	logger     *slog.Logger
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - st: account table source
//   - addr: listen address, e.g. ":8080" or "127.0.0.1:0"
//   - pagePath: rendered HTML page served at "/"
//   - hist: probe history (may be nil)
//   - logger: logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, addr, pagePath string, hist HistoryReader, logger *slog.Logger) *Server {
	return &Server{
		store:    st,
		addr:     addr,
		pagePath: pagePath,
		history:  hist,
		logger:   logger,
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/accounts", s.handleAccounts)
	mux.HandleFunc("GET /api/accounts/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown.
//
// Returns an error if the server fails to bind to the configured address.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify address availability synchronously
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", s.addr, err)
	}
	s.listener = ln

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

	s.logger.Info("status server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address once started, or the configured one.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// handlePage serves the rendered page file.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	content, err := os.ReadFile(s.pagePath)
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "Page not rendered yet", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		s.logger.Error("failed to read page", "path", s.pagePath, "error", err)
		http.Error(w, "Page unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(content); err != nil {
		s.logger.Error("failed to write page response", "error", err)
	}
}

// handleAccounts returns the account table as JSON.
func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	table, err := s.store.Load(r.Context())
	if err != nil {
		s.logger.Error("failed to load account table", "error", err)
		http.Error(w, "Account table unavailable", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, table)
}

// handleHistory returns recent probes for one account.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "History disabled", http.StatusNotFound)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	id := r.PathValue("id")
	entries, err := s.history.Recent(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("failed to read history", "account", id, "error", err)
		http.Error(w, "History unavailable", http.StatusInternalServerError)
		return
	}

	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			RunID:      e.RunID,
			Outcome:    e.Outcome,
			Reason:     e.Reason,
			StatusCode: e.StatusCode,
			LatencyMS:  e.Latency.Milliseconds(),
			CheckedAt:  e.CheckedAt,
		})
	}
	s.writeJSON(w, out)
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

type historyEntry struct {
	RunID      string    `json:"runId"`
	Outcome    string    `json:"outcome"`
	Reason     string    `json:"reason,omitempty"`
	StatusCode int       `json:"statusCode"`
	LatencyMS  int64     `json:"latencyMs"`
	CheckedAt  time.Time `json:"checkedAt"`
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
