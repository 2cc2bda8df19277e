package rtdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(context.Background(), srv.URL, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestFetchHistory_OrderedByKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/History.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{
			"-Nb2": {"ts": 2000, "wind": {"p": 2}},
			"-Na1": {"ts": 1000, "wind": {"p": 1}}
		}`))
	})

	samples, err := client.FetchHistory(context.Background())
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("len = %d, want 2", len(samples))
	}
	if samples[0].Key != "-Na1" || samples[1].Key != "-Nb2" {
		t.Errorf("keys = %q, %q, want -Na1, -Nb2", samples[0].Key, samples[1].Key)
	}
}

func TestFetchHistory_NullCollection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	})

	samples, err := client.FetchHistory(context.Background())
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("len = %d, want 0 for null collection", len(samples))
	}
}

func TestFetchLatest(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"-Nc3": {"ts": 3000, "batt": {"v": 3.7}}}`))
	})

	sample, err := client.FetchLatest(context.Background())
	if err != nil {
		t.Fatalf("FetchLatest: %v", err)
	}
	if v, _ := sample.Voltage("batt"); v != 3.7 {
		t.Errorf("batt voltage = %v, want 3.7", v)
	}
	for _, want := range []string{"orderBy=", "limitToLast=1"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query = %q, missing %s", gotQuery, want)
		}
	}
}

func TestFetchLatest_Empty(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("null"))
	})

	_, err := client.FetchLatest(context.Background())
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestFetch_PermissionDeniedIsPermanent(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "permission denied", http.StatusUnauthorized)
	})

	if _, err := client.FetchHistory(context.Background()); err == nil {
		t.Fatal("FetchHistory succeeded against 401")
	}
	if calls != 1 {
		t.Errorf("request retried %d times, want no retry on 401", calls)
	}
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(context.Background(), "", nil); err == nil {
		t.Error("New accepted empty database URL")
	}
}
