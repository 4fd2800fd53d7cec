package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"ai-marketplace-be/internal/constant"
	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/pkg/llm"
	"ai-marketplace-be/pkg/rag/filter"
	"ai-marketplace-be/pkg/rag/tooldecision"
	"ai-marketplace-be/pkg/search"
)

const systemInstruction = `You are a helpful assistant for a publisher marketplace. You help users discover and evaluate publisher sites for link building and content placement. Be concise and practical. When the user asks to see or filter sites, acknowledge the request naturally; a separate system executes the actual filtering.`

// Persister writes the completed turn back to storage. Failures are logged
// and swallowed; they never surface to the caller.
type Persister interface {
	PersistTurn(ctx context.Context, userId uuid.UUID, userMessage, assistantReply string) error
}

// Input is everything one turn needs. FilterState is passed in explicitly
// and never read from ambient scope, so merge/replace logic stays
// deterministic under test.
type Input struct {
	UserId           uuid.UUID
	Messages         []llm.Message
	FilterState      filter.State
	RetrievalContext string
}

// Outcome summarizes a finished turn for the caller that ran it.
type Outcome struct {
	Reply       string
	Decision    *tooldecision.Decision
	FilterState filter.State
	ToolResult  *search.Result
}

// Orchestrator drives one chat turn through its two stages: a streamed
// conversational reply, then a non-streamed tool-decision pass over the
// completed reply. Stage 2 depends on Stage 1's full text, so the stages
// are strictly sequential.
type Orchestrator struct {
	llmProvider llm.LLMProvider
	analyzer    *tooldecision.Analyzer
	executor    search.Executor
	persister   Persister
	log         logger.ILogger
}

func NewOrchestrator(
	llmProvider llm.LLMProvider,
	analyzer *tooldecision.Analyzer,
	executor search.Executor,
	persister Persister,
	log logger.ILogger,
) *Orchestrator {
	return &Orchestrator{
		llmProvider: llmProvider,
		analyzer:    analyzer,
		executor:    executor,
		persister:   persister,
		log:         log,
	}
}

// RunTurn executes one full turn, emitting events in order: content
// fragments, one of tool_result/tool_error/no_tool, then done. A Stage 1
// failure emits a single error event instead and returns the failure. A
// cancelled context stops the turn without Stage 2 or persistence.
func (o *Orchestrator) RunTurn(ctx context.Context, in Input, emit EmitFunc) (*Outcome, error) {
	userMessage := lastUserMessage(in.Messages)
	history := o.buildStageOneHistory(in)

	reply, err := o.llmProvider.ChatStream(ctx, history, func(fragment string) error {
		return emit(Event{Type: EventContent, Stage: 1, Content: fragment})
	})
	if err != nil {
		if ctx.Err() != nil {
			// Caller went away; nobody is listening for an error frame.
			return nil, ctx.Err()
		}
		o.logError("stage one failed", in.UserId, err)
		_ = emit(Event{Type: EventError, Error: "reply generation failed"})
		return nil, fmt.Errorf("stage one: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decision := o.analyzer.Analyze(ctx, userMessage, reply, in.FilterState)

	outcome := &Outcome{
		Reply:       reply,
		Decision:    decision,
		FilterState: in.FilterState.Clone(),
	}

	if decision.ShouldExecuteTool {
		nextState := filter.Apply(in.FilterState, decision.Parameters, decision.Mode(userMessage))
		result, toolErr := o.executor.Execute(ctx, in.UserId, map[string]interface{}(nextState))
		if toolErr != nil {
			o.logError("tool execution failed", in.UserId, toolErr)
			if err := emit(Event{Type: EventToolError, Stage: 2, Error: toolErr.Error(), Decision: decision}); err != nil {
				return nil, err
			}
		} else {
			outcome.FilterState = nextState
			outcome.ToolResult = result
			if err := emit(Event{Type: EventToolResult, Stage: 2, ToolResult: result, Decision: decision, FilterState: nextState}); err != nil {
				return nil, err
			}
		}
	} else {
		if err := emit(Event{Type: EventNoTool, Stage: 2, Decision: decision}); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if o.persister != nil {
		if err := o.persister.PersistTurn(ctx, in.UserId, userMessage, reply); err != nil {
			o.logError("turn persistence failed", in.UserId, err)
		}
	}

	if err := emit(Event{Type: EventDone}); err != nil {
		return nil, err
	}

	return outcome, nil
}

func (o *Orchestrator) buildStageOneHistory(in Input) []llm.Message {
	var system strings.Builder
	system.WriteString(systemInstruction)

	if in.RetrievalContext != "" {
		system.WriteString("\n\nWhat you know about this user from previous conversations:\n")
		system.WriteString(in.RetrievalContext)
	}

	if !in.FilterState.IsEmpty() {
		if stateJSON, err := json.Marshal(in.FilterState); err == nil {
			system.WriteString("\n\nThe user's currently active site filters:\n")
			system.Write(stateJSON)
		}
	}

	history := make([]llm.Message, 0, len(in.Messages)+1)
	history = append(history, llm.Message{
		Role:    constant.ChatMessageRoleSystem,
		Content: system.String(),
	})
	history = append(history, in.Messages...)
	return history
}

func (o *Orchestrator) logError(message string, userId uuid.UUID, err error) {
	if o.log != nil {
		o.log.Error("turn", message, map[string]interface{}{
			"userId": userId.String(),
			"error":  err.Error(),
		})
	}
}

func lastUserMessage(messages []llm.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == constant.ChatMessageRoleUser {
			return messages[i].Content
		}
	}
	return ""
}
