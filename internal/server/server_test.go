package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jpalmerr/tokenwatch/internal/account"
	"github.com/jpalmerr/tokenwatch/internal/history"
	"github.com/jpalmerr/tokenwatch/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingStore always fails to load.
type failingStore struct{}

func (failingStore) Load(context.Context) (account.Table, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Save(context.Context, account.Table) error { return nil }

// fakeHistory returns canned entries and records the requested limit.
type fakeHistory struct {
	entries  []history.Entry
	err      error
	gotID    string
	gotLimit int
}

func (f *fakeHistory) Recent(_ context.Context, id string, limit int) ([]history.Entry, error) {
	f.gotID = id
	f.gotLimit = limit
	return f.entries, f.err
}

func writePage(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// --- Page ---

func TestHandlePage_ServesFile(t *testing.T) {
	path := writePage(t, "<h1>accounts</h1>")
	srv := NewServer(store.NewMemoryStore(nil), ":0", path, nil, testLogger())

	rec := serve(srv, http.MethodGet, "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "<h1>accounts</h1>" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
}

func TestHandlePage_NotRenderedYet(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(nil), ":0", filepath.Join(t.TempDir(), "missing.html"), nil, testLogger())

	rec := serve(srv, http.MethodGet, "/")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandlePage_NonRootPath(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(nil), ":0", writePage(t, "x"), nil, testLogger())

	rec := serve(srv, http.MethodGet, "/other")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandlePage_DirectCallNonRoot(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(nil), ":0", writePage(t, "x"), nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/index.html", nil)
	rec := httptest.NewRecorder()
	srv.handlePage(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandlePage_MethodNotAllowed(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(nil), ":0", writePage(t, "x"), nil, testLogger())

	rec := serve(srv, http.MethodPost, "/")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

// --- Accounts ---

func TestHandleAccounts(t *testing.T) {
	seven := 7
	st := store.NewMemoryStore(account.Table{
		"7": {Identifier: "7", IndexNumber: &seven, Tag: "@7abc", Status: account.StatusActive},
	})
	srv := NewServer(st, ":0", "", nil, testLogger())

	rec := serve(srv, http.MethodGet, "/api/accounts")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var got account.Table
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["7"].Tag != "@7abc" {
		t.Errorf("tag = %q, want @7abc", got["7"].Tag)
	}
}

func TestHandleAccounts_StoreError(t *testing.T) {
	srv := NewServer(failingStore{}, ":0", "", nil, testLogger())

	rec := serve(srv, http.MethodGet, "/api/accounts")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk on fire") {
		t.Error("internal error text should not reach the client")
	}
}

// --- History ---

func TestHandleHistory(t *testing.T) {
	checked := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	hist := &fakeHistory{entries: []history.Entry{{
		RunID: "run-1", Identifier: "7", Outcome: "auth_failure", Reason: "unauthorized",
		StatusCode: 401, Latency: 85 * time.Millisecond, CheckedAt: checked,
	}}}
	srv := NewServer(store.NewMemoryStore(nil), ":0", "", hist, testLogger())

	rec := serve(srv, http.MethodGet, "/api/accounts/7/history?limit=10")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if hist.gotID != "7" || hist.gotLimit != 10 {
		t.Errorf("Recent(%q, %d), want (7, 10)", hist.gotID, hist.gotLimit)
	}

	var got []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0]["reason"] != "unauthorized" || got[0]["latencyMs"] != float64(85) {
		t.Errorf("entry = %v", got[0])
	}
}

func TestHandleHistory_Limits(t *testing.T) {
	tests := []struct {
		query     string
		wantCode  int
		wantLimit int
	}{
		{"", http.StatusOK, defaultHistoryLimit},
		{"?limit=5000", http.StatusOK, maxHistoryLimit},
		{"?limit=0", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			hist := &fakeHistory{}
			srv := NewServer(store.NewMemoryStore(nil), ":0", "", hist, testLogger())

			rec := serve(srv, http.MethodGet, "/api/accounts/7/history"+tt.query)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if hist.gotLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", hist.gotLimit, tt.wantLimit)
			}
		})
	}
}

func TestHandleHistory_Disabled(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(nil), ":0", "", nil, testLogger())

	rec := serve(srv, http.MethodGet, "/api/accounts/7/history")

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleHistory_Error(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(nil), ":0", "", &fakeHistory{err: errors.New("boom")}, testLogger())

	rec := serve(srv, http.MethodGet, "/api/accounts/7/history")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// --- Health ---

func TestHandleHealth(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(nil), ":0", "", nil, testLogger())

	rec := serve(srv, http.MethodGet, "/healthz")

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

// --- Start ---

func TestStart_AvailablePort_ReturnsNil(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(nil), "127.0.0.1:0", "", nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() on available port returned error: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStart_PortInUse_ReturnsError(t *testing.T) {
	// occupy a port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer func() { _ = ln.Close() }()

	srv := NewServer(store.NewMemoryStore(nil), ln.Addr().String(), "", nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = srv.Start(ctx)
	if err == nil {
		t.Fatal("Start() on occupied port should return error")
	}
	if !strings.Contains(err.Error(), "failed to bind") {
		t.Errorf("expected bind error, got: %v", err)
	}
}

func TestStart_ShutdownOnCancel(t *testing.T) {
	srv := NewServer(store.NewMemoryStore(nil), "127.0.0.1:0", "", nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := srv.Start(ctx); err != nil {
		t.Fatal(err)
	}
	addr := srv.Addr()

	cancel()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return
		}
		_ = conn.Close()
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("server still accepting connections after context cancellation")
}
