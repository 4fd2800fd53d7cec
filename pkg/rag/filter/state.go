package filter

import "strings"

// Mode controls how newly extracted parameters combine with the session's
// current search constraints.
type Mode string

const (
	// ModeMerge overlays the new fields on top of the current state.
	ModeMerge Mode = "merge"
	// ModeReplace discards the current state and starts from the new fields.
	ModeReplace Mode = "replace"
	// ModeClear empties the state entirely, ignoring any new fields.
	ModeClear Mode = "clear"
)

// State holds a session's active search constraints as named fields, e.g.
// min_domain_authority, max_price, country, niche, min_traffic.
type State map[string]interface{}

func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s State) IsEmpty() bool {
	return len(s) == 0
}

// Apply combines params with the current state according to mode and returns
// a new State. The input state is never mutated.
func Apply(current State, params map[string]interface{}, mode Mode) State {
	switch mode {
	case ModeClear:
		return State{}
	case ModeReplace:
		next := make(State, len(params))
		for k, v := range params {
			next[k] = v
		}
		return next
	default:
		next := current.Clone()
		for k, v := range params {
			next[k] = v
		}
		return next
	}
}

// replaceSignals and clearSignals are checked before merge signals because a
// message like "clear the filters and start over" must win as a clear.
var (
	clearSignals   = []string{"clear", "reset", "start over", "remove all filters"}
	replaceSignals = []string{"instead", "change to", "switch to", "replace"}
	mergeSignals   = []string{"also", "and ", "additionally", "as well"}
)

// DetectMode infers the combine mode from modifier words in the user message.
// Used as a fallback when the tool-decision stage does not state one.
func DetectMode(message string) Mode {
	lower := strings.ToLower(message)
	for _, s := range clearSignals {
		if strings.Contains(lower, s) {
			return ModeClear
		}
	}
	for _, s := range replaceSignals {
		if strings.Contains(lower, s) {
			return ModeReplace
		}
	}
	for _, s := range mergeSignals {
		if strings.Contains(lower, s) {
			return ModeMerge
		}
	}
	return ModeMerge
}

// ParseMode maps a mode string coming back from the tool-decision model onto
// a known Mode, falling back to detection on the user message.
func ParseMode(raw, userMessage string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeMerge:
		return ModeMerge
	case ModeReplace:
		return ModeReplace
	case ModeClear:
		return ModeClear
	default:
		return DetectMode(userMessage)
	}
}
