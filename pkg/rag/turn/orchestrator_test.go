package turn

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-marketplace-be/pkg/llm"
	"ai-marketplace-be/pkg/rag/filter"
	"ai-marketplace-be/pkg/rag/tooldecision"
	"ai-marketplace-be/pkg/search"
)

type fakeLLM struct {
	fragments      []string
	streamErr      error
	decisionJSON   string
	decisionErr    error
	generateCalled bool
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return strings.Join(f.fragments, ""), nil
}

func (f *fakeLLM) ChatStream(ctx context.Context, history []llm.Message, onFragment llm.FragmentFunc, options ...llm.Option) (string, error) {
	var full strings.Builder
	for _, fragment := range f.fragments {
		if err := ctx.Err(); err != nil {
			return full.String(), err
		}
		full.WriteString(fragment)
		if err := onFragment(fragment); err != nil {
			return full.String(), err
		}
	}
	if f.streamErr != nil {
		return full.String(), f.streamErr
	}
	return full.String(), nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.generateCalled = true
	return f.decisionJSON, f.decisionErr
}

type fakeExecutor struct {
	result     *search.Result
	err        error
	called     bool
	lastParams map[string]interface{}
}

func (f *fakeExecutor) Execute(ctx context.Context, userId uuid.UUID, params map[string]interface{}) (*search.Result, error) {
	f.called = true
	f.lastParams = params
	return f.result, f.err
}

type fakePersister struct {
	called    bool
	err       error
	userMsg   string
	assistant string
}

func (f *fakePersister) PersistTurn(ctx context.Context, userId uuid.UUID, userMessage, assistantReply string) error {
	f.called = true
	f.userMsg = userMessage
	f.assistant = assistantReply
	return f.err
}

func collectEvents() (*[]Event, EmitFunc) {
	events := &[]Event{}
	return events, func(e Event) error {
		*events = append(*events, e)
		return nil
	}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func newTestOrchestrator(provider *fakeLLM, executor *fakeExecutor, persister *fakePersister) *Orchestrator {
	return NewOrchestrator(provider, tooldecision.NewAnalyzer(provider, nil), executor, persister, nil)
}

func userTurn(content string) []llm.Message {
	return []llm.Message{{Role: "user", Content: content}}
}

func TestRunTurnWithToolExecution(t *testing.T) {
	provider := &fakeLLM{
		fragments:    []string{"Sure, ", "here are ", "some sites."},
		decisionJSON: `{"shouldExecuteTool": true, "toolName": "filter_sites", "parameters": {"max_price": 200}, "filterMode": "merge", "confidence": 0.9}`,
	}
	executor := &fakeExecutor{result: &search.Result{Total: 3}}
	persister := &fakePersister{}
	orch := newTestOrchestrator(provider, executor, persister)

	events, emit := collectEvents()
	outcome, err := orch.RunTurn(context.Background(), Input{
		UserId:      uuid.New(),
		Messages:    userTurn("show me sites under $200"),
		FilterState: filter.State{"country": "US"},
	}, emit)
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventContent, EventContent, EventContent, EventToolResult, EventDone}, eventTypes(*events))
	assert.Equal(t, "Sure, here are some sites.", outcome.Reply)

	// Merge keeps the existing country bound and adds the price bound
	assert.Equal(t, "US", outcome.FilterState["country"])
	assert.Equal(t, float64(200), outcome.FilterState["max_price"])
	assert.Equal(t, outcome.FilterState, filter.State(executor.lastParams))

	assert.True(t, persister.called)
	assert.Equal(t, "show me sites under $200", persister.userMsg)
	assert.Equal(t, "Sure, here are some sites.", persister.assistant)
}

func TestRunTurnNoToolPath(t *testing.T) {
	provider := &fakeLLM{
		fragments:    []string{"Domain authority measures..."},
		decisionJSON: `{"shouldExecuteTool": false, "parameters": {}, "reasoning": "informational"}`,
	}
	executor := &fakeExecutor{}
	persister := &fakePersister{}
	orch := newTestOrchestrator(provider, executor, persister)

	events, emit := collectEvents()
	_, err := orch.RunTurn(context.Background(), Input{
		UserId:   uuid.New(),
		Messages: userTurn("what is domain authority?"),
	}, emit)
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventContent, EventNoTool, EventDone}, eventTypes(*events))
	assert.False(t, executor.called)
	assert.True(t, persister.called)
}

func TestRunTurnStageOneFailure(t *testing.T) {
	provider := &fakeLLM{streamErr: fmt.Errorf("model down")}
	executor := &fakeExecutor{}
	persister := &fakePersister{}
	orch := newTestOrchestrator(provider, executor, persister)

	events, emit := collectEvents()
	_, err := orch.RunTurn(context.Background(), Input{
		UserId:   uuid.New(),
		Messages: userTurn("hello"),
	}, emit)
	require.Error(t, err)

	// One error frame, no done sentinel, no downstream work
	assert.Equal(t, []EventType{EventError}, eventTypes(*events))
	assert.False(t, provider.generateCalled)
	assert.False(t, executor.called)
	assert.False(t, persister.called)
}

func TestRunTurnCancellationSkipsDownstream(t *testing.T) {
	provider := &fakeLLM{
		fragments:    []string{"first", "second", "third"},
		decisionJSON: `{"shouldExecuteTool": false, "parameters": {}}`,
	}
	executor := &fakeExecutor{}
	persister := &fakePersister{}
	orch := newTestOrchestrator(provider, executor, persister)

	ctx, cancel := context.WithCancel(context.Background())
	var events []Event
	emit := func(e Event) error {
		events = append(events, e)
		if len(events) == 1 {
			cancel() // caller disconnects after the first fragment
		}
		return nil
	}

	_, err := orch.RunTurn(ctx, Input{
		UserId:   uuid.New(),
		Messages: userTurn("hello"),
	}, emit)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []EventType{EventContent}, eventTypes(events))
	assert.False(t, provider.generateCalled)
	assert.False(t, executor.called)
	assert.False(t, persister.called)
}

func TestRunTurnToolErrorStillCompletes(t *testing.T) {
	provider := &fakeLLM{
		fragments:    []string{"Let me check."},
		decisionJSON: `{"shouldExecuteTool": true, "toolName": "filter_sites", "parameters": {"niche": "tech"}, "filterMode": "merge"}`,
	}
	executor := &fakeExecutor{err: fmt.Errorf("search backend unavailable")}
	persister := &fakePersister{}
	orch := newTestOrchestrator(provider, executor, persister)

	events, emit := collectEvents()
	outcome, err := orch.RunTurn(context.Background(), Input{
		UserId:      uuid.New(),
		Messages:    userTurn("show me tech sites"),
		FilterState: filter.State{"country": "US"},
	}, emit)
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventContent, EventToolError, EventDone}, eventTypes(*events))
	assert.True(t, persister.called)

	// Failed execution does not commit the proposed filter change
	assert.Equal(t, filter.State{"country": "US"}, outcome.FilterState)
	assert.Nil(t, outcome.ToolResult)
}

func TestRunTurnPersistenceFailureIsSwallowed(t *testing.T) {
	provider := &fakeLLM{
		fragments:    []string{"A reply."},
		decisionJSON: `{"shouldExecuteTool": false, "parameters": {}}`,
	}
	persister := &fakePersister{err: fmt.Errorf("db down")}
	orch := newTestOrchestrator(provider, &fakeExecutor{}, persister)

	events, emit := collectEvents()
	_, err := orch.RunTurn(context.Background(), Input{
		UserId:   uuid.New(),
		Messages: userTurn("hello"),
	}, emit)
	require.NoError(t, err)

	assert.Equal(t, EventDone, (*events)[len(*events)-1].Type)
}

func TestRunTurnReplaceModeDiscardsOldFilters(t *testing.T) {
	provider := &fakeLLM{
		fragments:    []string{"Switching to health sites."},
		decisionJSON: `{"shouldExecuteTool": true, "toolName": "filter_sites", "parameters": {"niche": "health"}, "filterMode": "replace"}`,
	}
	executor := &fakeExecutor{result: &search.Result{Total: 1}}
	orch := newTestOrchestrator(provider, executor, &fakePersister{})

	_, emit := collectEvents()
	outcome, err := orch.RunTurn(context.Background(), Input{
		UserId:      uuid.New(),
		Messages:    userTurn("show health sites instead"),
		FilterState: filter.State{"country": "US", "max_price": 200},
	}, emit)
	require.NoError(t, err)

	assert.Equal(t, filter.State{"niche": "health"}, outcome.FilterState)
}

func TestRunTurnMalformedDecisionDegradesToNoTool(t *testing.T) {
	provider := &fakeLLM{
		fragments:    []string{"Here you go."},
		decisionJSON: "not json at all",
	}
	executor := &fakeExecutor{}
	orch := newTestOrchestrator(provider, executor, &fakePersister{})

	events, emit := collectEvents()
	_, err := orch.RunTurn(context.Background(), Input{
		UserId:   uuid.New(),
		Messages: userTurn("show me sites"),
	}, emit)
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventContent, EventNoTool, EventDone}, eventTypes(*events))
	assert.False(t, executor.called)
}

func TestBuildStageOneHistoryCarriesContext(t *testing.T) {
	orch := newTestOrchestrator(&fakeLLM{}, &fakeExecutor{}, nil)

	history := orch.buildStageOneHistory(Input{
		Messages:         userTurn("hi"),
		FilterState:      filter.State{"country": "US"},
		RetrievalContext: "The user's name is Alice.",
	})

	require.Len(t, history, 2)
	assert.Equal(t, "system", history[0].Role)
	assert.Contains(t, history[0].Content, "The user's name is Alice.")
	assert.Contains(t, history[0].Content, `"country":"US"`)
	assert.Equal(t, "hi", history[1].Content)
}
