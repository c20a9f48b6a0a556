package rag

import (
	"strings"

	"github.com/ragmart/ragmart/internal/corpus"
)

const (
	// persona is the fixed instruction block for the generator.
	persona = "You are an assistant that answers questions about Dutch parliamentary documents. " +
		"Base your answer on the context below. When the context does not cover the question, say so."

	// fallbackContext replaces the context block when retrieval
	// produced no matches.
	fallbackContext = "No supporting documents were found for this question. " +
		"Answer from general knowledge and state clearly that the answer is not grounded in the document corpus."
)

// LinkBuilder turns a document identifier into a download reference.
type LinkBuilder func(id string) string

// Assembler builds the message sequence handed to the generator.
type Assembler struct {
	link LinkBuilder
}

// NewAssembler creates a prompt assembler. The link builder is used to
// derive citation links; a nil builder yields citations without links.
func NewAssembler(link LinkBuilder) *Assembler {
	if link == nil {
		link = func(string) string { return "" }
	}
	return &Assembler{link: link}
}

// BuildMessages merges retrieved passages, prior conversation history
// and the current question into an ordered message sequence: the
// system message first, history in original order, the question last.
// The generator reads message order as conversation order.
func (a *Assembler) BuildMessages(query string, matches []corpus.Match, history []Message) []Message {
	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{
		Role:    RoleSystem,
		Content: persona + "\n\nContext:\n" + contextBlock(matches),
	})
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleUser, Content: query})
	return msgs
}

// Citations derives one citation per match, preserving match order.
// No matches means no citations.
func (a *Assembler) Citations(matches []corpus.Match) []Citation {
	if len(matches) == 0 {
		return nil
	}
	citations := make([]Citation, len(matches))
	for i, m := range matches {
		citations[i] = Citation{
			ID:       m.ID,
			Link:     a.link(m.ID),
			Distance: m.Distance,
		}
	}
	return citations
}

// contextBlock concatenates match texts in ascending-distance order,
// separated by a blank line.
func contextBlock(matches []corpus.Match) string {
	if len(matches) == 0 {
		return fallbackContext
	}
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return strings.Join(texts, "\n\n")
}
