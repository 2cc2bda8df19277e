package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anawil7349-cpu/my-wind-ai/internal/models"
	"github.com/anawil7349-cpu/my-wind-ai/internal/rtdb"
	"github.com/anawil7349-cpu/my-wind-ai/internal/telemetry"
)

type echoAsker struct {
	last string
}

func (a *echoAsker) HandleTurn(ctx context.Context, question string) string {
	a.last = question
	return "answer to: " + question
}

type emptyFetcher struct{}

func (emptyFetcher) FetchHistory(ctx context.Context) ([]rtdb.KeyedSample, error) {
	return nil, nil
}

func (emptyFetcher) FetchLatest(ctx context.Context) (models.RawSample, error) {
	return nil, rtdb.ErrNoData
}

func newTestServer(t *testing.T) (*Server, *echoAsker) {
	t.Helper()
	asker := &echoAsker{}
	store := telemetry.NewStore(emptyFetcher{})
	return NewServer(asker, store, "0", nil), asker
}

func postAsk(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeAnswer(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp askResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return resp.Answer
}

func TestAsk(t *testing.T) {
	srv, asker := newTestServer(t)
	rec := postAsk(t, srv.Handler(), `{"question":"how much wind today?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeAnswer(t, rec); got != "answer to: how much wind today?" {
		t.Errorf("answer = %q", got)
	}
	if asker.last != "how much wind today?" {
		t.Errorf("question passed = %q", asker.last)
	}
}

func TestAsk_BadBodyStill200(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, body := range []string{"{not json", `{"question":""}`, `{}`} {
		rec := postAsk(t, srv.Handler(), body)
		if rec.Code != http.StatusOK {
			t.Errorf("status for %q = %d, want 200", body, rec.Code)
		}
		if got := decodeAnswer(t, rec); !strings.HasPrefix(got, "error: ") {
			t.Errorf("answer for %q = %q, want error-tagged text", body, got)
		}
	}
}

func TestAsk_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/ask", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRootLiveness(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "running") {
		t.Errorf("body = %q, want liveness text", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["records"] != float64(0) {
		t.Errorf("records = %v, want 0", resp["records"])
	}
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/ask", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
