package domain

import (
	"encoding/json"
	"time"
)

// ChatQuery is a retrieval-augmented question against the document corpus.
type ChatQuery struct {
	ConversationID string  `json:"conversation_id"`
	Query          string  `json:"query"`
	FileType       string  `json:"file_type,omitempty"`
	TopK           int     `json:"k"`
	Threshold      float64 `json:"similarity_threshold"`
}

// ChatAnswer is the upstream LLM response plus the retrieved contexts that
// grounded it.
type ChatAnswer struct {
	Response string            `json:"llm_response"`
	Contexts []json.RawMessage `json:"contexts,omitempty"`
}

// ChatExchange is one persisted question/answer pair of a conversation.
type ChatExchange struct {
	ConversationID string            `json:"conversation_id"`
	Username       string            `json:"username"`
	Query          string            `json:"query"`
	Response       string            `json:"response"`
	Contexts       []json.RawMessage `json:"contexts,omitempty"`
	AskedAt        time.Time         `json:"asked_at"`
}

const (
	DefaultChatTopK      = 5
	DefaultChatThreshold = 0.5
)
