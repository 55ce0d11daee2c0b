package query

import (
	"context"

	"github.com/OFFIS-RIT/kgchat/pkg/ai"
)

// Answerer turns retrieved graph context and a question into an answer.
// An error or an empty answer means the collaborator could not answer.
type Answerer interface {
	Answer(ctx context.Context, graphContext string, question string) (string, error)
}

// StreamAnswerer is an Answerer that can also deliver its answer in pieces.
type StreamAnswerer interface {
	Answerer
	AnswerStream(ctx context.Context, graphContext string, question string) (<-chan ai.StreamEvent, error)
}

// AnswererFunc adapts a plain function to Answerer.
type AnswererFunc func(ctx context.Context, graphContext string, question string) (string, error)

func (f AnswererFunc) Answer(ctx context.Context, graphContext string, question string) (string, error) {
	return f(ctx, graphContext, question)
}
