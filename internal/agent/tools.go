package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/anawil7349-cpu/my-wind-ai/internal/metrics"
)

const (
	toolRunQuery     = "run_query"
	toolRefreshData  = "refresh_data"
	toolRememberFact = "remember_fact"
)

const queryToolDescription = `Run an aggregate query over the charger history table.
The table is bound to the variable df with columns: date ("YYYY-MM-DD"), hour,
minute, wind_power, batt_power, wind_energy, batt_energy, wind_voltage,
batt_voltage. Build pipelines with | from these stages:
  filter(col op literal)  op is == != > >= < <=
  group(col)              then an aggregate: sum(col), mean(col), min(col), max(col), count()
  sort(col, desc)  top(n)  select(col, ...)
Assign the final value to result, e.g.:
  result = df | group(date) | sum(wind_energy) | sort(sum_wind_energy, desc) | top(1)`

// toolset declares the three callable tools in Gemini function form.
func toolset() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        toolRunQuery,
				Description: queryToolDescription,
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"code": {
							Type:        genai.TypeString,
							Description: "the query, one or more assignments ending with result = ...",
						},
					},
					Required: []string{"code"},
				},
			},
			{
				Name:        toolRefreshData,
				Description: "Re-sync the history table from the charger database. Call before querying if the data may be stale.",
			},
			{
				Name:        toolRememberFact,
				Description: "Store a fact for future conversations.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"topic": {Type: genai.TypeString},
						"info":  {Type: genai.TypeString},
					},
					Required: []string{"topic", "info"},
				},
			},
		},
	}}
}

// dispatch executes one requested tool call synchronously and returns its
// string result. Unknown tools and bad arguments produce error strings for
// the model, never failures of the turn.
func (o *Orchestrator) dispatch(ctx context.Context, call *genai.FunctionCall) string {
	result, ok := o.runTool(ctx, call)
	status := "ok"
	if !ok {
		status = "error"
	}
	metrics.ToolCallsTotal.WithLabelValues(call.Name, status).Inc()
	return result
}

func (o *Orchestrator) runTool(ctx context.Context, call *genai.FunctionCall) (string, bool) {
	switch call.Name {
	case toolRunQuery:
		code, ok := stringArg(call.Args, "code")
		if !ok {
			return "error: run_query needs a code argument", false
		}
		return o.executor.Run(code), true
	case toolRefreshData:
		return o.store.Refresh(ctx), true
	case toolRememberFact:
		topic, ok1 := stringArg(call.Args, "topic")
		info, ok2 := stringArg(call.Args, "info")
		if !ok1 || !ok2 {
			return "error: remember_fact needs topic and info", false
		}
		return o.notes.Remember(topic, info), true
	default:
		return fmt.Sprintf("error: unsupported tool %q", call.Name), false
	}
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// clip bounds a tool result before it is fed back to the model, the same
// guard the HTTP tool loop pattern uses against token blowups.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n... (truncated)"
}
