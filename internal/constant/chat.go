package constant

// Chat roles (provider-agnostic)
const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
	ChatMessageRoleSystem    = "system"
)

// Knowledge fact content types
const (
	ContentTypeUserFact         = "user_fact"
	ContentTypeConversationTurn = "conversation_turn"
)

// DefaultImportanceScore is assigned to new facts unless the caller
// overrides it. Reserved as a future ranking input.
const DefaultImportanceScore = 1.0
