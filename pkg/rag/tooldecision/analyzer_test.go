package tooldecision

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-marketplace-be/pkg/llm"
	"ai-marketplace-be/pkg/rag/filter"
)

type scriptedLLM struct {
	response string
	err      error
	prompt   string
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *scriptedLLM) ChatStream(ctx context.Context, history []llm.Message, onFragment llm.FragmentFunc, options ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func TestAnalyzeParsesToolDecision(t *testing.T) {
	provider := &scriptedLLM{
		response: `{"shouldExecuteTool": true, "toolName": "filter_sites", "parameters": {"max_price": 200, "niche": "tech"}, "filterMode": "merge", "reasoning": "user wants to browse", "confidence": 0.92}`,
	}
	analyzer := NewAnalyzer(provider, nil)

	decision := analyzer.Analyze(context.Background(), "show me tech sites under $200", "Sure, here are some options.", nil)

	require.True(t, decision.ShouldExecuteTool)
	assert.Equal(t, ToolFilterSites, decision.ToolName)
	assert.Equal(t, float64(200), decision.Parameters["max_price"])
	assert.Equal(t, "tech", decision.Parameters["niche"])
	assert.Equal(t, filter.ModeMerge, decision.Mode("show me tech sites under $200"))
	assert.InDelta(t, 0.92, decision.Confidence, 1e-9)
}

func TestAnalyzeExtractsJSONFromChatter(t *testing.T) {
	provider := &scriptedLLM{
		response: "Here is my analysis:\n```json\n{\"shouldExecuteTool\": false, \"toolName\": \"\", \"parameters\": {}, \"reasoning\": \"informational question\", \"confidence\": 0.8}\n```\nHope that helps!",
	}
	analyzer := NewAnalyzer(provider, nil)

	decision := analyzer.Analyze(context.Background(), "what is domain authority?", "Domain authority is...", nil)

	assert.False(t, decision.ShouldExecuteTool)
	assert.Equal(t, "informational question", decision.Reasoning)
}

func TestAnalyzeMalformedOutputFallsBackToNoTool(t *testing.T) {
	provider := &scriptedLLM{response: "I think the user wants to browse sites."}
	analyzer := NewAnalyzer(provider, nil)

	decision := analyzer.Analyze(context.Background(), "show me sites", "Here you go.", nil)

	assert.False(t, decision.ShouldExecuteTool)
	assert.NotNil(t, decision.Parameters)
	assert.Contains(t, decision.Reasoning, "Fallback")
}

func TestAnalyzeProviderErrorFallsBackToNoTool(t *testing.T) {
	provider := &scriptedLLM{err: fmt.Errorf("model unavailable")}
	analyzer := NewAnalyzer(provider, nil)

	decision := analyzer.Analyze(context.Background(), "show me sites", "Here you go.", nil)

	assert.False(t, decision.ShouldExecuteTool)
	assert.Contains(t, decision.Reasoning, "Fallback")
}

func TestAnalyzePromptCarriesTurnContext(t *testing.T) {
	provider := &scriptedLLM{response: `{"shouldExecuteTool": false, "parameters": {}}`}
	analyzer := NewAnalyzer(provider, nil)

	state := filter.State{"country": "US"}
	analyzer.Analyze(context.Background(), "the user message", "the stage one reply", state)

	assert.Contains(t, provider.prompt, "the user message")
	assert.Contains(t, provider.prompt, "the stage one reply")
	assert.Contains(t, provider.prompt, `"country":"US"`)
}

func TestParseDecisionClampsConfidence(t *testing.T) {
	decision, err := parseDecision(`{"shouldExecuteTool": true, "confidence": 3.5}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, decision.Confidence)
	// Missing tool name defaults when execution was requested
	assert.Equal(t, ToolFilterSites, decision.ToolName)
}

func TestDecisionModeFallsBackToMessageDetection(t *testing.T) {
	decision := &Decision{FilterMode: ""}
	assert.Equal(t, filter.ModeReplace, decision.Mode("show health sites instead"))
}
