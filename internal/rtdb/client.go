// Package rtdb is a minimal REST client for the Firebase Realtime Database
// that holds the charger's History collection.
package rtdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/anawil7349-cpu/my-wind-ai/internal/metrics"
	"github.com/anawil7349-cpu/my-wind-ai/internal/models"
)

// ErrNoData is returned when the History collection has no entries.
var ErrNoData = errors.New("rtdb: no data")

var scopes = []string{
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/firebase.database",
}

type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a client for the database at baseURL (e.g.
// "https://<project>-default-rtdb.asia-southeast1.firebasedatabase.app").
// credJSON is an optional service-account key; without it requests are
// unauthenticated, which works only against public read rules.
func New(ctx context.Context, baseURL string, credJSON []byte) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("rtdb: database URL is required")
	}

	hc := &http.Client{Timeout: 30 * time.Second}
	if len(credJSON) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, credJSON, scopes...)
		if err != nil {
			return nil, fmt.Errorf("rtdb: parse credentials: %w", err)
		}
		hc = oauth2.NewClient(ctx, creds.TokenSource)
		hc.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  hc,
	}, nil
}

// KeyedSample pairs a History push ID with its raw sample. Push IDs sort
// lexically in roughly chronological order.
type KeyedSample struct {
	Key    string
	Sample models.RawSample
}

// FetchHistory retrieves the entire History collection, ordered by key.
func (c *Client) FetchHistory(ctx context.Context) ([]KeyedSample, error) {
	body, err := c.get(ctx, "/History.json", nil, "history")
	if err != nil {
		return nil, err
	}

	var data map[string]models.RawSample
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}

	samples := make([]KeyedSample, 0, len(data))
	for key, val := range data {
		samples = append(samples, KeyedSample{Key: key, Sample: val})
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i].Key < samples[j].Key })
	return samples, nil
}

// FetchLatest retrieves the single most recent sample by insertion key.
// Returns ErrNoData when the collection is empty.
func (c *Client) FetchLatest(ctx context.Context) (models.RawSample, error) {
	query := url.Values{}
	query.Set("orderBy", `"$key"`)
	query.Set("limitToLast", "1")

	body, err := c.get(ctx, "/History.json", query, "latest")
	if err != nil {
		return nil, err
	}

	var data map[string]models.RawSample
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("unmarshal latest: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrNoData
	}
	for _, val := range data {
		return val, nil
	}
	return nil, ErrNoData
}

func (c *Client) get(ctx context.Context, path string, query url.Values, endpoint string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	start := time.Now()
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", endpoint, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch %s: status %d", endpoint, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("fetch %s: status %d: %s", endpoint, resp.StatusCode, string(b)))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("read body: %w", err))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RTDBCallsTotal.WithLabelValues(endpoint, status).Inc()
	metrics.RTDBLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return body, nil
}
