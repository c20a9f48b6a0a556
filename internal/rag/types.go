// Package rag turns a raw question into a grounded, role-tagged
// message sequence backed by the nearest documents in the corpus.
package rag

// Message roles, matching the conversation order the generator expects.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged entry of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Citation points at a source document that grounded an answer.
type Citation struct {
	ID       string  `json:"id"`
	Link     string  `json:"link"`
	Distance float64 `json:"distance"`
}
