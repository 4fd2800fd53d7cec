package tooldecision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/pkg/llm"
	"ai-marketplace-be/pkg/rag/filter"
)

// Known tool names the analyzer may propose
const (
	ToolFilterSites = "filter_sites"
)

// Decision is the structured outcome of the tool-decision stage.
type Decision struct {
	ShouldExecuteTool bool                   `json:"shouldExecuteTool"`
	ToolName          string                 `json:"toolName"`
	Parameters        map[string]interface{} `json:"parameters"`
	FilterMode        string                 `json:"filterMode"`
	Reasoning         string                 `json:"reasoning"`
	Confidence        float64                `json:"confidence"`
}

// Mode resolves the decision's filter mode, falling back to modifier-word
// detection on the user message when the model left it out.
func (d *Decision) Mode(userMessage string) filter.Mode {
	return filter.ParseMode(d.FilterMode, userMessage)
}

// Analyzer runs the non-streamed analysis pass over a completed turn. It
// never fails a turn: provider errors and malformed output both degrade to
// a no-tool decision.
type Analyzer struct {
	llmProvider llm.LLMProvider
	log         logger.ILogger
}

func NewAnalyzer(llmProvider llm.LLMProvider, log logger.ILogger) *Analyzer {
	return &Analyzer{
		llmProvider: llmProvider,
		log:         log,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, userMessage, assistantReply string, currentState filter.State) *Decision {
	prompt := a.buildPrompt(userMessage, assistantReply, currentState)

	// Temperature 0 for deterministic structured output
	response, err := a.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		a.warn("tool decision call failed", err)
		return noToolDecision("analysis call failed")
	}

	decision, err := parseDecision(response)
	if err != nil {
		a.warn("tool decision output unparseable", err)
		return noToolDecision("analysis output unparseable")
	}

	return decision
}

func (a *Analyzer) warn(message string, err error) {
	if a.log != nil {
		a.log.Warn("tooldecision", message, map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func noToolDecision(reason string) *Decision {
	return &Decision{
		ShouldExecuteTool: false,
		Parameters:        map[string]interface{}{},
		Reasoning:         "Fallback: " + reason,
		Confidence:        0,
	}
}

func (a *Analyzer) buildPrompt(userMessage, assistantReply string, currentState filter.State) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a tool-decision analyzer for a publisher marketplace assistant.\n")
	prompt.WriteString("Your ONLY job is to decide whether the user's message requires executing the site filter tool.\n")
	prompt.WriteString("You do NOT answer the user. You only classify and extract parameters.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<current_filters>\n")
	if currentState.IsEmpty() {
		prompt.WriteString("No active filters.\n")
	} else {
		stateJSON, err := json.Marshal(currentState)
		if err != nil {
			prompt.WriteString("No active filters.\n")
		} else {
			prompt.WriteString(string(stateJSON))
			prompt.WriteString("\n")
		}
	}
	prompt.WriteString("</current_filters>\n\n")

	prompt.WriteString("<user_message>\n")
	prompt.WriteString(userMessage)
	prompt.WriteString("\n</user_message>\n\n")

	prompt.WriteString("<assistant_reply>\n")
	prompt.WriteString(assistantReply)
	prompt.WriteString("\n</assistant_reply>\n\n")

	prompt.WriteString("<decision_policy>\n")
	prompt.WriteString("EXECUTE the tool when the user wants to VIEW, BROWSE, FIND or SELECT sites:\n")
	prompt.WriteString("  - 'show me tech sites under $200'\n")
	prompt.WriteString("  - 'find high quality US publishers'\n")
	prompt.WriteString("  - 'also filter by health niche'\n\n")
	prompt.WriteString("Do NOT execute when the message is informational or conceptual:\n")
	prompt.WriteString("  - 'what does domain authority mean?'\n")
	prompt.WriteString("  - 'how do backlinks work?'\n\n")
	prompt.WriteString("Parameter extraction maps descriptors to concrete bounds:\n")
	prompt.WriteString("  - 'affordable', 'cheap' -> max_price\n")
	prompt.WriteString("  - 'quality', 'authoritative' -> min_domain_authority and max_spam_score\n")
	prompt.WriteString("  - country/region words -> country\n")
	prompt.WriteString("  - topic words -> niche\n")
	prompt.WriteString("  - 'popular', 'high traffic' -> min_traffic\n\n")
	prompt.WriteString("filterMode selection:\n")
	prompt.WriteString("  - 'also'/'and' style additions -> \"merge\"\n")
	prompt.WriteString("  - 'instead'/'change to' -> \"replace\"\n")
	prompt.WriteString("  - 'clear'/'reset' -> \"clear\"\n")
	prompt.WriteString("</decision_policy>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"shouldExecuteTool\": true,\n")
	prompt.WriteString(fmt.Sprintf("  \"toolName\": \"%s\",\n", ToolFilterSites))
	prompt.WriteString("  \"parameters\": {\"max_price\": 200, \"niche\": \"tech\"},\n")
	prompt.WriteString("  \"filterMode\": \"merge|replace|clear\",\n")
	prompt.WriteString("  \"reasoning\": \"Brief explanation\",\n")
	prompt.WriteString("  \"confidence\": 0.95\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseDecision(response string) (*Decision, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var decision Decision
	if err := json.Unmarshal([]byte(jsonContent), &decision); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	if decision.Parameters == nil {
		decision.Parameters = map[string]interface{}{}
	}
	if decision.Confidence < 0 {
		decision.Confidence = 0
	}
	if decision.Confidence > 1 {
		decision.Confidence = 1
	}
	if decision.ShouldExecuteTool && decision.ToolName == "" {
		decision.ToolName = ToolFilterSites
	}

	return &decision, nil
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
