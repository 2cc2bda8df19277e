package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/anawil7349-cpu/my-wind-ai/internal/analysis"
	"github.com/anawil7349-cpu/my-wind-ai/internal/metrics"
	"github.com/anawil7349-cpu/my-wind-ai/internal/models"
	"github.com/anawil7349-cpu/my-wind-ai/internal/notes"
	"github.com/anawil7349-cpu/my-wind-ai/internal/telemetry"
)

const (
	// NotReady is the fixed answer when no session can be established.
	NotReady = "agent not ready: model service unavailable"

	defaultMaxToolRounds  = 8
	defaultMaxResultBytes = 8192

	// maxHistoryContents caps how much of the dialogue is replayed each
	// turn; the oldest exchanges fall off first.
	maxHistoryContents = 40
)

type Config struct {
	AnswerLanguage string // natural language the agent answers in
	MaxToolRounds  int
	MaxResultBytes int
}

// Orchestrator owns the single live conversation session. One turn runs at a
// time; the mutex also protects the session handle, which is discarded on any
// turn failure and lazily recreated.
type Orchestrator struct {
	gen      Generator
	selector *Selector
	store    *telemetry.Store
	probe    *telemetry.Probe
	executor *analysis.Executor
	notes    *notes.Book
	cfg      Config

	mu      sync.Mutex
	session *session
}

type session struct {
	model   string
	history []*genai.Content
}

func NewOrchestrator(gen Generator, selector *Selector, store *telemetry.Store, probe *telemetry.Probe, executor *analysis.Executor, book *notes.Book, cfg Config) *Orchestrator {
	if cfg.AnswerLanguage == "" {
		cfg.AnswerLanguage = "Thai"
	}
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}
	if cfg.MaxResultBytes <= 0 {
		cfg.MaxResultBytes = defaultMaxResultBytes
	}
	return &Orchestrator{
		gen:      gen,
		selector: selector,
		store:    store,
		probe:    probe,
		executor: executor,
		notes:    book,
		cfg:      cfg,
	}
}

// HandleTurn answers one user question, dispatching tool calls as the model
// requests them. It always returns an answer string; failures are encoded in
// the text and the session is dropped so the next turn starts fresh.
func (o *Orchestrator) HandleTurn(ctx context.Context, question string) string {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	answer, err := o.runTurn(ctx, question)
	status := "ok"
	if err != nil {
		status = "error"
		o.session = nil
		o.selector.Invalidate()
		answer = "error: " + err.Error()
		log.Printf("turn failed: %v", err)
	}
	metrics.TurnsTotal.WithLabelValues(status).Inc()
	metrics.TurnLatency.Observe(time.Since(start).Seconds())
	return answer
}

func (o *Orchestrator) runTurn(ctx context.Context, question string) (string, error) {
	if o.gen == nil {
		return NotReady, nil
	}
	if o.session == nil {
		o.session = &session{model: o.selector.Select(ctx)}
	}

	now := time.Now().In(models.Local).Format("2006-01-02 15:04")
	status := o.probe.CurrentStatus(ctx)
	prompt := fmt.Sprintf("[Time: %s] [Realtime: %s] User: %s", now, status, question)

	contents := append(append([]*genai.Content(nil), o.session.history...), userContent(prompt))
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: o.systemInstruction()}}},
		Tools:             toolset(),
	}

	for round := 0; round < o.cfg.MaxToolRounds; round++ {
		content, err := o.generate(ctx, contents, cfg)
		if err != nil {
			return "", err
		}
		contents = append(contents, content)

		calls := functionCalls(content)
		if len(calls) == 0 {
			o.session.history = trimHistory(contents)
			return textOf(content), nil
		}

		// Tool calls run strictly in request order; each result is fed
		// back into the same turn.
		responses := &genai.Content{Role: genai.RoleUser}
		for _, call := range calls {
			result := clip(o.dispatch(ctx, call), o.cfg.MaxResultBytes)
			responses.Parts = append(responses.Parts, &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					Name:     call.Name,
					Response: map[string]any{"result": result},
				},
			})
		}
		contents = append(contents, responses)
	}

	// Round budget spent: ask for a final answer with tools withheld.
	contents = append(contents, userContent("Answer the question now using the tool results gathered so far."))
	final := &genai.GenerateContentConfig{SystemInstruction: cfg.SystemInstruction}
	content, err := o.generate(ctx, contents, final)
	if err != nil {
		return "", err
	}
	contents = append(contents, content)
	o.session.history = trimHistory(contents)
	return textOf(content), nil
}

func (o *Orchestrator) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.Content, error) {
	resp, err := o.gen.GenerateContent(ctx, o.session.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("generate: empty response")
	}
	return resp.Candidates[0].Content, nil
}

func (o *Orchestrator) systemInstruction() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are a data scientist for a wind charger and battery installation. Answer in %s.\n", o.cfg.AnswerLanguage)
	sb.WriteString("For any question that needs statistics or aggregation over the history, call run_query; never estimate from memory. Always assign the final value to result.\n")
	sb.WriteString("The [Realtime: ...] prefix of each message is the live reading; use it for \"right now\" questions.\n")
	if facts := o.notes.Summary(); facts != "" {
		sb.WriteString("Remembered facts:\n")
		sb.WriteString(facts)
	}
	return sb.String()
}

func userContent(text string) *genai.Content {
	return &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}
}

func functionCalls(content *genai.Content) []*genai.FunctionCall {
	var calls []*genai.FunctionCall
	for _, part := range content.Parts {
		if part != nil && part.FunctionCall != nil {
			calls = append(calls, part.FunctionCall)
		}
	}
	return calls
}

func textOf(content *genai.Content) string {
	var sb strings.Builder
	for _, part := range content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

func trimHistory(contents []*genai.Content) []*genai.Content {
	if len(contents) <= maxHistoryContents {
		return contents
	}
	return contents[len(contents)-maxHistoryContents:]
}
