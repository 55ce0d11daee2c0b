package query

import (
	"context"
	"errors"
	"testing"

	"github.com/OFFIS-RIT/kgchat/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatClient struct {
	ai.MetricsRecorder

	answer   string
	err      error
	messages []ai.ChatMessage
	options  ai.GenerateOptions
}

func (c *chatClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not implemented")
}

func (c *chatClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return errors.New("not implemented")
}

func (c *chatClient) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	c.messages = messages
	c.options = ai.ApplyOptions(ai.GenerateOptions{}, opts...)
	return c.answer, c.err
}

func (c *chatClient) GenerateChatStream(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (<-chan ai.StreamEvent, error) {
	c.messages = messages
	if c.err != nil {
		return nil, c.err
	}
	ch := make(chan ai.StreamEvent, 1)
	ch <- ai.StreamEvent{Type: "content", Content: c.answer}
	close(ch)
	return ch, nil
}

func (c *chatClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	return nil
}

func TestAIAnswerer(t *testing.T) {
	client := &chatClient{answer: "Newton proposed gravity."}
	a := NewAIAnswerer(client, QueryOptions{Model: "glm-4", SystemPrompts: []string{"be brief"}})

	answer, err := a.Answer(context.Background(), "Newton -[proposed]-> Gravity", "Who proposed gravity?")
	require.NoError(t, err)
	assert.Equal(t, "Newton proposed gravity.", answer)

	require.Len(t, client.messages, 1)
	assert.Equal(t, "user", client.messages[0].Role)
	assert.Equal(t,
		"<knowledge_graph>\nNewton -[proposed]-> Gravity\n</knowledge_graph>\nWho proposed gravity?",
		client.messages[0].Message,
	)
	assert.Equal(t, []string{ai.GraphExpertPrompt, "be brief"}, client.options.SystemPrompts)
	assert.Equal(t, "glm-4", client.options.Model)
}

func TestAIAnswererError(t *testing.T) {
	client := &chatClient{err: ai.ErrNoClient}
	a := NewAIAnswerer(client, QueryOptions{})

	_, err := a.Answer(context.Background(), "ctx", "q")
	assert.True(t, errors.Is(err, ai.ErrNoClient))

	conv := NewConversation(NewConversationParams{Answerer: a})
	ex := conv.AskStream(context.Background(), newtonGraph(), "Newton", nil)
	assert.True(t, ex.Fallback)
}

func TestAIAnswererStream(t *testing.T) {
	client := &chatClient{answer: "streamed"}
	conv := NewConversation(NewConversationParams{Answerer: NewAIAnswerer(client, QueryOptions{})})

	ex := conv.AskStream(context.Background(), newtonGraph(), "Newton", nil)
	assert.Equal(t, "streamed", ex.Answer.Content)
}
