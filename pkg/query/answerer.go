package query

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/kgchat/pkg/ai"
)

// QueryOptions tunes the model call made by AIAnswerer. Empty fields keep
// the client defaults.
type QueryOptions struct {
	Model         string
	Thinking      string
	SystemPrompts []string
}

// AIAnswerer answers questions with a language model, instructing it to
// rely only on the supplied knowledge graph context.
type AIAnswerer struct {
	client  ai.GraphAIClient
	options QueryOptions
}

// NewAIAnswerer creates an answerer backed by client.
func NewAIAnswerer(client ai.GraphAIClient, options QueryOptions) *AIAnswerer {
	return &AIAnswerer{client: client, options: options}
}

func (a *AIAnswerer) messages(graphContext, question string) []ai.ChatMessage {
	return []ai.ChatMessage{{
		Role:    "user",
		Message: fmt.Sprintf(ai.GraphAnswerPrompt, graphContext, question),
	}}
}

func (a *AIAnswerer) generateOptions() []ai.GenerateOption {
	systemPrompts := append([]string{ai.GraphExpertPrompt}, a.options.SystemPrompts...)
	opts := []ai.GenerateOption{
		ai.WithSystemPrompts(systemPrompts...),
	}
	if a.options.Model != "" {
		opts = append(opts, ai.WithModel(a.options.Model))
	}
	if a.options.Thinking != "" {
		opts = append(opts, ai.WithThinking(a.options.Thinking))
	}
	return opts
}

// Answer sends the context and question to the model.
func (a *AIAnswerer) Answer(ctx context.Context, graphContext string, question string) (string, error) {
	resp, err := a.client.GenerateChat(ctx, a.messages(graphContext, question), a.generateOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer from AI: %w", err)
	}
	return resp, nil
}

// AnswerStream is Answer with incremental delivery.
func (a *AIAnswerer) AnswerStream(ctx context.Context, graphContext string, question string) (<-chan ai.StreamEvent, error) {
	events, err := a.client.GenerateChatStream(ctx, a.messages(graphContext, question), a.generateOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to stream answer from AI: %w", err)
	}
	return events, nil
}
