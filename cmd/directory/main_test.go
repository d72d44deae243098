package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	logpkg "github.com/kailas-cloud/directory/internal/logger"
)

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/businesses", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["code"] != "internal_error" {
		t.Errorf("code = %q", body["code"])
	}
}

func TestWideEventMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logpkg.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	})
	h := chiMiddleware.RequestID(wideEventMiddleware(logger)(inner))

	req := httptest.NewRequest(http.MethodPost, "/businesses/search", http.NoBody)
	req.Header.Set("X-Request-Id", "req-42")
	req.Header.Set("X-Owner-ID", "owner-1")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("X-Request-ID = %q", got)
	}
	inside := logs.FilterMessage("inside").All()
	if len(inside) != 1 || inside[0].ContextMap()["request_id"] != "req-42" {
		t.Errorf("expected the handler to log through the request logger, got %v", inside)
	}

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("expected one http_request line, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("status field = %v", fields["status"])
	}
	if fields["request_id"] != "req-42" || fields["owner"] != "owner-1" {
		t.Errorf("unexpected fields: %v", fields)
	}
}

func TestLoadPostalTable(t *testing.T) {
	t.Run("bundled", func(t *testing.T) {
		table, err := loadPostalTable("")
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := table.Lookup("10115"); !ok {
			t.Error("expected 10115 in the bundled dataset")
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "codes.csv")
		if err := os.WriteFile(path, []byte("code,lng,lat\n99999,1.5,2.5\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		table, err := loadPostalTable(path)
		if err != nil {
			t.Fatal(err)
		}
		p, ok := table.Lookup("99999")
		if !ok || p.Lng != 1.5 || p.Lat != 2.5 {
			t.Errorf("Lookup(99999) = %v, %v", p, ok)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := loadPostalTable(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
			t.Error("expected error")
		}
	})
}
