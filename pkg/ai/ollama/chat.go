package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/kgchat/pkg/ai"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultContext  = 4096
	responseReserve = 200
)

var (
	encMu sync.Mutex
	enc   *tiktoken.Tiktoken
)

// loadEncoding fetches the BPE ranks. Failures are not cached so a later
// request can retry.
var loadEncoding = tiktoken.GetEncoding

// tokenCount sizes the context window of a request.
var tokenCount = countTokens

func encoding() (*tiktoken.Tiktoken, error) {
	encMu.Lock()
	defer encMu.Unlock()
	if enc != nil {
		return enc, nil
	}
	e, err := loadEncoding("o200k_base")
	if err != nil {
		return nil, err
	}
	enc = e
	return enc, nil
}

func countTokens(text string) (int, error) {
	e, err := encoding()
	if err != nil {
		return 0, err
	}
	return len(e.Encode(text, nil, nil)), nil
}

func buildMessages(options ai.GenerateOptions, messages []ai.ChatMessage) []api.Message {
	msgs := make([]api.Message, 0, len(options.SystemPrompts)+len(messages))
	for _, sys := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sys})
	}
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = "user"
		}
		msgs = append(msgs, api.Message{Role: role, Content: m.Message})
	}
	return msgs
}

// newRequest builds a chat request. num_ctx is raised only when the prompt
// would not fit the default window; if counting fails the server default
// is kept.
func newRequest(options ai.GenerateOptions, messages []ai.ChatMessage, stream bool) *api.ChatRequest {
	msgs := buildMessages(options, messages)
	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Options:  map[string]any{"temperature": options.Temperature},
	}

	if options.Thinking != "" {
		req.Think = &api.ThinkValue{
			Value: options.Thinking,
		}
	}

	var text strings.Builder
	for _, m := range msgs {
		text.WriteString(m.Content)
		text.WriteString("\n")
	}
	tokens, err := tokenCount(text.String())
	if err != nil {
		logger.Warn("[AI] Token count failed, using default context window", "err", err)
		return req
	}
	if tokens+responseReserve > defaultContext {
		req.Options["num_ctx"] = tokens + responseReserve
	}
	return req
}

func metricsOf(m api.Metrics) ai.ModelMetrics {
	return ai.ModelMetrics{
		InputTokens:  m.PromptEvalCount,
		OutputTokens: m.EvalCount,
		TotalTokens:  m.PromptEvalCount + m.EvalCount,
		DurationMs:   m.TotalDuration.Milliseconds(),
	}
}

func (c *GraphOllamaClient) chat(ctx context.Context, req *api.ChatRequest) (string, error) {
	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", err
	}

	c.Add(metricsOf(final.Metrics))

	if strings.TrimSpace(final.Message.Content) == "" {
		return "", ai.ErrEmptyResponse
	}
	return final.Message.Content, nil
}

// GenerateCompletion sends a single-turn prompt and returns assistant text.
func (c *GraphOllamaClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: c.temperature,
	}, opts...)

	req := newRequest(options, []ai.ChatMessage{{Role: "user", Message: prompt}}, false)
	return c.chat(ctx, req)
}

// GenerateCompletionWithFormat enforces a JSON schema and unmarshals into out.
func (c *GraphOllamaClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	if out == nil {
		return errors.New("out must be a non-nil pointer")
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("out must be a non-nil pointer")
	}

	formatBytes, err := json.Marshal(ai.GenerateSchema(out))
	if err != nil {
		return err
	}

	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.extractionModel,
		Temperature: 0.1,
	}, opts...)

	req := newRequest(options, []ai.ChatMessage{{Role: "user", Message: prompt}}, false)
	req.Format = json.RawMessage(formatBytes)

	content, err := c.chat(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return ai.UnmarshalFlexible(content, out)
}

// GenerateChat sends a multi-turn conversation and returns assistant text.
func (c *GraphOllamaClient) GenerateChat(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: c.temperature,
	}, opts...)

	req := newRequest(options, messages, false)
	return c.chat(ctx, req)
}

// GenerateChatStream streams the assistant reply incrementally.
// A failed stream ends with a single event of Type "error".
func (c *GraphOllamaClient) GenerateChatStream(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (<-chan ai.StreamEvent, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: c.temperature,
	}, opts...)

	req := newRequest(options, messages, true)

	if err := c.reqLock.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	out := make(chan ai.StreamEvent, 16)

	go func() {
		defer close(out)
		defer c.reqLock.Release(1)

		err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
			if s := cr.Message.Thinking; s != "" {
				select {
				case out <- ai.StreamEvent{Type: "step", Step: "thinking", Reasoning: s}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if s := cr.Message.Content; s != "" {
				select {
				case out <- ai.StreamEvent{Type: "content", Content: s}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if cr.Done {
				c.Add(metricsOf(cr.Metrics))
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("[AI] Chat stream failed", "err", err)
			select {
			case out <- ai.StreamEvent{Type: "error", Err: err}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

// LoadModel preloads the chat model into memory to reduce latency on
// subsequent requests.
func (c *GraphOllamaClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	options := ai.ApplyOptions(ai.GenerateOptions{Model: c.chatModel}, opts...)

	req := &api.ChatRequest{
		Model: options.Model,
	}

	return c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		return nil
	})
}
