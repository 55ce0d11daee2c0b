package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kgchat/pkg/ai"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

func (c *GraphOpenAIClient) client() (*openai.Client, error) {
	if c.ChatClient == nil {
		return nil, fmt.Errorf("%w: missing api key", ai.ErrNoClient)
	}
	return c.ChatClient, nil
}

func buildMessages(options ai.GenerateOptions, messages []ai.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(options.SystemPrompts)+len(messages))
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	for _, message := range messages {
		switch message.Role {
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(message.Message))
		default:
			msgs = append(msgs, openai.UserMessage(message.Message))
		}
	}
	return msgs
}

func (c *GraphOpenAIClient) newParams(options ai.GenerateOptions, messages []ai.ChatMessage) openai.ChatCompletionNewParams {
	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(options.Model),
		Messages:    buildMessages(options, messages),
		Temperature: openai.Float(options.Temperature),
	}

	if options.Thinking != "" {
		// reasoning models on the official API only accept temperature 1.0
		if c.chatURL == "" {
			body.Temperature = openai.Float(1.0)
		}
		body.ReasoningEffort = shared.ReasoningEffort(options.Thinking)
	}
	return body
}

func (c *GraphOpenAIClient) complete(
	ctx context.Context,
	body openai.ChatCompletionNewParams,
) (string, error) {
	client, err := c.client()
	if err != nil {
		return "", err
	}

	start := time.Now()
	response, err := client.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	duration := time.Since(start).Milliseconds()

	c.Add(ai.ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   duration,
	})

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ai.ErrEmptyResponse)
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return "", fmt.Errorf("%w (finish_reason: %s)", ai.ErrEmptyResponse, response.Choices[0].FinishReason)
	}
	return message, nil
}

// GenerateCompletion sends a single-turn prompt to the chat model and
// returns the generated completion as plain text.
//
// Example:
//
//	resp, err := client.GenerateCompletion(ctx, "Summarize this text...")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(resp)
func (c *GraphOpenAIClient) GenerateCompletion(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: c.temperature,
	}, opts...)

	body := c.newParams(options, []ai.ChatMessage{{Role: "user", Message: prompt}})
	return c.complete(ctx, body)
}

// GenerateCompletionWithFormat sends a prompt to the extraction model and
// unmarshals the response into out, using a JSON schema derived from out to
// enforce structure.
//
// Example:
//
//	var out extract.TripleList
//	err := client.GenerateCompletionWithFormat(ctx, "triples", "Extracted triples", prompt, &out)
func (c *GraphOpenAIClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.extractionModel,
		Temperature: 0.1,
	}, opts...)

	body := c.newParams(options, []ai.ChatMessage{{Role: "user", Message: prompt}})
	body.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:        name,
				Description: openai.String(description),
				Schema:      ai.GenerateSchema(out),
				Strict:      openai.Bool(true),
			},
		},
	}

	message, err := c.complete(ctx, body)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(message, out)
}

// GenerateChat sends a multi-turn chat conversation to the model and
// returns the assistant's reply as plain text.
//
// Example:
//
//	msgs := []ai.ChatMessage{
//		{Role: "user", Message: "Who proposed gravity?"},
//	}
//	resp, err := client.GenerateChat(ctx, msgs, ai.WithSystemPrompts(ai.GraphExpertPrompt))
func (c *GraphOpenAIClient) GenerateChat(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: c.temperature,
	}, opts...)

	return c.complete(ctx, c.newParams(options, messages))
}

// GenerateChatStream sends a multi-turn chat conversation to the model
// and returns a channel that streams the assistant's reply incrementally.
//
// The returned channel is closed when the stream ends or the context is
// canceled. A failed stream ends with a single event of Type "error".
func (c *GraphOpenAIClient) GenerateChatStream(
	ctx context.Context,
	messages []ai.ChatMessage,
	opts ...ai.GenerateOption,
) (<-chan ai.StreamEvent, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}

	options := ai.ApplyOptions(ai.GenerateOptions{
		Model:       c.chatModel,
		Temperature: c.temperature,
	}, opts...)

	body := c.newParams(options, messages)
	body.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	start := time.Now()
	stream := client.Chat.Completions.NewStreaming(ctx, body)
	contentChan := make(chan ai.StreamEvent, 10)

	send := func(ev ai.StreamEvent) bool {
		select {
		case contentChan <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(contentChan)
		defer stream.Close()

		acc := openai.ChatCompletionAccumulator{}
		contentStarted := false

		for stream.Next() {
			chunk := stream.Current()
			acc.AddChunk(chunk)

			if len(chunk.Choices) == 0 {
				continue
			}

			if !contentStarted {
				if reasoningField, ok := chunk.Choices[0].Delta.JSON.ExtraFields["reasoning"]; ok && reasoningField.Raw() != "" {
					var decoded string
					if err := json.Unmarshal([]byte(reasoningField.Raw()), &decoded); err == nil && decoded != "" {
						if !send(ai.StreamEvent{Type: "step", Step: "thinking", Reasoning: decoded}) {
							return
						}
					}
				}
			}

			if chunk.Choices[0].Delta.Content != "" {
				contentStarted = true
				if !send(ai.StreamEvent{Type: "content", Content: chunk.Choices[0].Delta.Content}) {
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			logger.Error("[AI] Chat stream failed", "err", err)
			send(ai.StreamEvent{Type: "error", Err: err})
			return
		}

		c.Add(ai.ModelMetrics{
			InputTokens:  int(acc.Usage.PromptTokens),
			OutputTokens: int(acc.Usage.CompletionTokens),
			TotalTokens:  int(acc.Usage.TotalTokens),
			DurationMs:   time.Since(start).Milliseconds(),
		})
	}()

	return contentChan, nil
}

// LoadModel is a no-op for OpenAI as models are loaded on-demand.
func (c *GraphOpenAIClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	_, err := c.client()
	return err
}
