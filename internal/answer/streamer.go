package answer

import (
	"context"
	"errors"
	"iter"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/ragmart/ragmart/internal/rag"
)

// Fragment is one incremental piece of a streamed answer. Err marks
// fragments that replace content the model failed to deliver.
type Fragment struct {
	Text string
	Err  bool
}

const (
	// malformedChunkNotice stands in for a chunk that arrived without
	// readable text. The stream continues after it.
	malformedChunkNotice = "[onleesbaar fragment overgeslagen]"

	// generationFailedNotice closes a stream the model abandoned.
	generationFailedNotice = "\n[antwoord afgebroken: de generatie is mislukt]"
)

// errStreamStopped tells the model driver the consumer went away.
var errStreamStopped = errors.New("stream consumer stopped")

// Stream generates an answer incrementally. Each well-formed model
// chunk yields one fragment in arrival order. A malformed chunk yields
// a single error fragment in its place without ending the stream; only
// total generation failure terminates the sequence, with a final error
// fragment. Breaking out of the loop cancels the generation.
func (gen *Generator) Stream(ctx context.Context, msgs []rag.Message) iter.Seq[Fragment] {
	return func(yield func(Fragment) bool) {
		stopped := false

		callback := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			text, ok := chunkText(chunk)
			if !ok {
				gen.logger.Warn("malformed chunk in generation stream")
				if !yield(Fragment{Text: malformedChunkNotice, Err: true}) {
					stopped = true
					return errStreamStopped
				}
				return nil
			}
			if text == "" {
				return nil
			}
			if !yield(Fragment{Text: text}) {
				stopped = true
				return errStreamStopped
			}
			return nil
		}

		opts := append(gen.options(msgs), ai.WithStreaming(callback))
		if _, err := genkit.Generate(ctx, gen.g, opts...); err != nil && !stopped {
			gen.logger.Error("streaming generation failed", "error", err)
			yield(Fragment{Text: generationFailedNotice, Err: true})
		}
	}
}

// chunkText extracts the concatenated text of a chunk. The second
// return value is false when the chunk carries no readable content.
func chunkText(chunk *ai.ModelResponseChunk) (string, bool) {
	if chunk == nil || len(chunk.Content) == 0 {
		return "", false
	}
	var text string
	sawText := false
	for _, part := range chunk.Content {
		if part == nil {
			continue
		}
		if part.IsText() {
			sawText = true
			text += part.Text
		}
	}
	if !sawText {
		return "", false
	}
	return text, true
}
