// Package answer drives the text-generation model: materialized
// completions for the plain query endpoint and incremental fragments
// for the streaming one.
package answer

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/ragmart/ragmart/internal/log"
	"github.com/ragmart/ragmart/internal/rag"
)

// Config holds generation parameters.
type Config struct {
	// ModelName selects the model, e.g. "googleai/gemini-2.5-flash".
	ModelName string
	// Temperature is the sampling temperature, 0 to 2.
	Temperature float32
	// MaxTokens caps the generated output length.
	MaxTokens int
}

// Generator produces answers from an assembled message sequence.
type Generator struct {
	g      *genkit.Genkit
	cfg    Config
	logger log.Logger
}

// NewGenerator creates a generator bound to an initialized Genkit
// instance.
func NewGenerator(g *genkit.Genkit, cfg Config, logger log.Logger) *Generator {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Generator{g: g, cfg: cfg, logger: logger}
}

// Complete generates the full answer in one call.
func (gen *Generator) Complete(ctx context.Context, msgs []rag.Message) (string, error) {
	resp, err := genkit.Generate(ctx, gen.g, gen.options(msgs)...)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return resp.Text(), nil
}

func (gen *Generator) options(msgs []rag.Message) []ai.GenerateOption {
	opts := []ai.GenerateOption{
		ai.WithMessages(toModelMessages(msgs)...),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     float64(gen.cfg.Temperature),
			MaxOutputTokens: gen.cfg.MaxTokens,
		}),
	}
	if gen.cfg.ModelName != "" {
		opts = append(opts, ai.WithModelName(gen.cfg.ModelName))
	}
	return opts
}

func toModelMessages(msgs []rag.Message) []*ai.Message {
	out := make([]*ai.Message, len(msgs))
	for i, m := range msgs {
		part := ai.NewTextPart(m.Content)
		switch m.Role {
		case rag.RoleSystem:
			out[i] = &ai.Message{Role: ai.RoleSystem, Content: []*ai.Part{part}}
		case rag.RoleAssistant:
			out[i] = ai.NewModelMessage(part)
		default:
			out[i] = ai.NewUserMessage(part)
		}
	}
	return out
}
