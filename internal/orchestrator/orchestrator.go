// Package orchestrator implements the function-calling state machine:
// CALL_MODEL -> DISPATCH_TOOL -> RETURN_TOOL_RESULT -> EMIT/ABORT, bounded
// by a per-turn round counter.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/joestump/hotel-chat-gateway/internal/backend"
	"github.com/joestump/hotel-chat-gateway/internal/llm"
	"github.com/joestump/hotel-chat-gateway/internal/sessionstore"
	"github.com/joestump/hotel-chat-gateway/internal/tools"
)

// TraceStatus is the outcome of one tool dispatch, recorded in a trace
// entry.
type TraceStatus string

const (
	StatusOK      TraceStatus = "OK"
	StatusError   TraceStatus = "ERROR"
	StatusTimeout TraceStatus = "TIMEOUT"
)

// Trace is one tool-call trace entry. It never carries argument values or
// backend payloads, only fields useful for observability.
type Trace struct {
	Name       string
	Status     TraceStatus
	DurationMs int64
}

// Result is what a completed (or aborted) orchestration run produces.
type Result struct {
	Reply   string
	Trace   []Trace
	Aborted bool
}

const maxToolResultChars = 4000

// Orchestrator drives the multi-round function-calling dialogue.
type Orchestrator struct {
	client    llm.Client
	be        *backend.Client
	model     string
	maxRounds int
}

// New constructs an Orchestrator. model is LLM_MODEL_MAIN; maxRounds is
// MAX_FC_ROUNDS (reference value 6).
func New(client llm.Client, be *backend.Client, model string, maxRounds int) *Orchestrator {
	return &Orchestrator{client: client, be: be, model: model, maxRounds: maxRounds}
}

const systemPromptTemplate = "You are a hotel concierge assistant. Respond in %s. Use the available tools to look up rooms, reservations, and restaurant information; never invent backend data. Keep replies concise and natural."

// Run executes one full turn's worth of CALL_MODEL/DISPATCH_TOOL rounds and
// returns either a final EMIT reply or an ABORT apology, never an error for
// tool-level failures (those are fed back into the model instead).
func (o *Orchestrator) Run(ctx context.Context, history []sessionstore.Message, userText, language, bearerCredential string) (Result, error) {
	messages := historyToParams(history)
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(userText)))

	systemPrompt := fmt.Sprintf(systemPromptTemplate, language)
	toolParams := declarationsToToolParams(tools.Catalogue)

	var trace []Trace

	for round := 0; round < o.maxRounds; round++ {
		msg, err := o.client.CreateMessage(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(o.model),
			MaxTokens: 1024,
			System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
			Messages:  messages,
			Tools:     toolParams,
		})
		if err != nil {
			return Result{}, fmt.Errorf("orchestrator: call model: %w", err)
		}

		toolUse, text, hasToolUse := firstToolUseOrText(msg.Content)
		if !hasToolUse {
			// Plain-text answer: EMIT.
			return Result{Reply: text, Trace: trace}, nil
		}

		// DISPATCH_TOOL: a tool call takes precedence over any accompanying
		// text in the same response.
		messages = append(messages, assistantMessageFromResponse(msg.Content))

		// A NETWORK failure aborts only the REMAINING tool calls in this
		// round (dispatchToolUses stops issuing new calls), not the turn:
		// the aggregated results, including the synthesized abort markers,
		// still go back to CALL_MODEL so the model gets one more round to
		// recover or apologize in its own voice.
		toolResults, newTrace, _ := o.dispatchToolUses(ctx, msg.Content, bearerCredential)
		trace = append(trace, newTrace...)
		messages = append(messages, anthropic.NewUserMessage(toolResults...))
		_ = toolUse // toolUse retained only for readability of the branch above
	}

	return Result{Reply: apologyFor(language), Trace: trace, Aborted: true}, nil
}

// dispatchToolUses executes every tool_use block sequentially in
// model-provided order, short-circuiting remaining calls only on a
// NETWORK-classified failure.
func (o *Orchestrator) dispatchToolUses(ctx context.Context, blocks []anthropic.ContentBlockUnion, bearerCredential string) ([]anthropic.ContentBlockParamUnion, []Trace, bool) {
	var results []anthropic.ContentBlockParamUnion
	var trace []Trace
	aborted := false

	for _, block := range blocks {
		if block.Type != "tool_use" {
			continue
		}
		if aborted {
			results = append(results, anthropic.NewToolResultBlock(block.ID, `{"error":"ABORTED","detail":"preceding network failure"}`, true))
			continue
		}

		resultJSON, status, durationMs, isError, networkFailure, dispatched := o.dispatchOne(ctx, block, bearerCredential)
		if dispatched {
			trace = append(trace, Trace{Name: block.Name, Status: status, DurationMs: durationMs})
		}
		results = append(results, anthropic.NewToolResultBlock(block.ID, resultJSON, isError))

		if networkFailure {
			aborted = true
		}
	}

	return results, trace, aborted
}

// dispatchOne resolves and issues one tool call. dispatched reports whether
// the call actually reached the Backend Client: it is false for a catalogue
// miss or a schema-validation failure, both of which are synthesised
// locally and returned to the model without ever calling out, so they must
// not count toward toolTrace, which reflects only backend calls actually made.
func (o *Orchestrator) dispatchOne(ctx context.Context, block anthropic.ContentBlockUnion, bearerCredential string) (resultJSON string, status TraceStatus, durationMs int64, isError bool, networkFailure bool, dispatched bool) {
	decl, ok := tools.Lookup(block.Name)
	if !ok {
		return `{"error":"UNKNOWN_TOOL"}`, StatusError, 0, true, false, false
	}

	var args map[string]any
	if len(block.Input) > 0 {
		if err := json.Unmarshal(block.Input, &args); err != nil {
			return `{"error":"INVALID_ARGS","detail":"malformed arguments"}`, StatusError, 0, true, false, false
		}
	}

	req, err := tools.Validate(decl, args)
	if err != nil {
		return fmt.Sprintf(`{"error":"INVALID_ARGS","detail":%q}`, err.Error()), StatusError, 0, true, false, false
	}

	start := time.Now()
	out, berr := o.be.Dispatch(ctx, req, bearerCredential)
	elapsed := time.Since(start).Milliseconds()

	if berr != nil {
		body := map[string]any{"error": string(berr.Kind)}
		encoded, _ := json.Marshal(body)
		isNetwork := berr.Kind == backend.KindNetwork
		st := StatusError
		if berr.Kind == backend.KindTimeout {
			st = StatusTimeout
		}
		return string(encoded), st, elapsed, true, isNetwork, true
	}

	encoded, _ := json.Marshal(out)
	if len(encoded) > maxToolResultChars {
		encoded = encoded[:maxToolResultChars]
	}
	return string(encoded), StatusOK, elapsed, false, false, true
}

func firstToolUseOrText(blocks []anthropic.ContentBlockUnion) (toolUse anthropic.ContentBlockUnion, text string, hasToolUse bool) {
	for _, b := range blocks {
		if b.Type == "tool_use" {
			return b, "", true
		}
	}
	for _, b := range blocks {
		if b.Type == "text" {
			text += b.Text
		}
	}
	return anthropic.ContentBlockUnion{}, text, false
}

func assistantMessageFromResponse(blocks []anthropic.ContentBlockUnion) anthropic.MessageParam {
	var params []anthropic.ContentBlockParamUnion
	for _, b := range blocks {
		switch b.Type {
		case "text":
			params = append(params, anthropic.NewTextBlock(b.Text))
		case "tool_use":
			params = append(params, anthropic.NewToolUseBlockParam(b.ID, b.Name, b.Input))
		}
	}
	return anthropic.NewAssistantMessage(params...)
}

func historyToParams(history []sessionstore.Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		if m.Role == "assistant" {
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		} else {
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return params
}

func declarationsToToolParams(decls []tools.Declaration) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		properties := make(map[string]any, len(d.Arguments))
		var required []string
		for _, f := range d.Arguments {
			properties[f.Name] = map[string]any{"type": string(f.Type), "description": f.Description}
			if f.Required {
				required = append(required, f.Name)
			}
		}
		out = append(out, anthropic.ToolUnionParamOfTool(anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Type:       "object",
				Properties: properties,
				Required:   required,
			},
		}))
	}
	return out
}

var apologies = map[string]string{
	"pl-PL": "Przepraszam, nie udało mi się dokończyć tej prośby. Spróbuj ponownie.",
}

const defaultApology = "I'm sorry, I wasn't able to complete that request. Please try again."

func apologyFor(language string) string {
	if a, ok := apologies[language]; ok {
		return a
	}
	return defaultApology
}
