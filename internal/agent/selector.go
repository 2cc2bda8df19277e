// Package agent drives the conversation: model selection, the single live
// session, and the bounded tool-calling loop.
package agent

import (
	"context"
	"log"
	"sync"

	"google.golang.org/genai"
)

// Candidate model identifiers in priority order. The hosted catalog renames
// and retires identifiers over time, so the first candidate that answers a
// liveness probe wins.
var DefaultCandidates = []string{
	"gemini-2.0-flash",
	"gemini-2.0-flash-lite",
	"gemini-1.5-flash",
}

// DefaultFallback is used unprobed when every candidate fails; the first real
// turn against it may still fail, which degrades that turn only.
const DefaultFallback = "gemini-1.5-flash"

// Prober issues a minimal liveness request against one model identifier.
type Prober interface {
	Probe(ctx context.Context, model string) error
}

// Generator is the slice of the genai client the agent uses. *genai.Models
// satisfies it.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenProber probes by issuing a one-token generation request.
type GenProber struct {
	Gen Generator
}

func (p GenProber) Probe(ctx context.Context, model string) error {
	cfg := &genai.GenerateContentConfig{MaxOutputTokens: 1}
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: "ping"}},
	}}
	_, err := p.Gen.GenerateContent(ctx, model, contents, cfg)
	return err
}

// Selector picks a usable model identifier and caches the last known good
// one. Invalidate drops the cache so the next Select re-probes, which is the
// failure-refresh path instead of probing on every startup.
type Selector struct {
	prober     Prober
	candidates []string
	fallback   string

	mu     sync.Mutex
	cached string
}

func NewSelector(prober Prober, candidates []string, fallback string) *Selector {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	if fallback == "" {
		fallback = DefaultFallback
	}
	return &Selector{prober: prober, candidates: candidates, fallback: fallback}
}

// Select returns the cached model if one is known, otherwise probes the
// candidates in order and returns the first that responds. When all probes
// fail it returns the fallback without probing it.
func (s *Selector) Select(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" {
		return s.cached
	}
	for _, candidate := range s.candidates {
		if err := s.prober.Probe(ctx, candidate); err != nil {
			log.Printf("model probe %s: %v", candidate, err)
			continue
		}
		log.Printf("selected model %s", candidate)
		s.cached = candidate
		return candidate
	}
	log.Printf("all model probes failed, falling back to %s", s.fallback)
	s.cached = s.fallback
	return s.fallback
}

// Invalidate clears the cached model after a failed turn.
func (s *Selector) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = ""
}
