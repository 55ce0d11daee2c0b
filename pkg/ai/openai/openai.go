package openai

import (
	"github.com/OFFIS-RIT/kgchat/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// GraphOpenAIClient talks to an OpenAI compatible chat completion API.
// It answers questions with the chat model and extracts triples with the
// extraction model.
//
// A GraphOpenAIClient should be created using NewGraphOpenAIClient.
type GraphOpenAIClient struct {
	chatModel       string
	extractionModel string
	temperature     float64

	chatURL string

	ai.MetricsRecorder

	// ChatClient is nil when no API key was configured.
	ChatClient *openai.Client
}

// NewGraphOpenAIClientParams defines the configuration parameters for
// creating a new GraphOpenAIClient.
//
// ChatURL may point to any OpenAI compatible endpoint; empty means the
// official API. ExtractionModel defaults to ChatModel. Temperature is used
// for answers when no per-call option overrides it.
type NewGraphOpenAIClientParams struct {
	ChatModel       string
	ExtractionModel string
	Temperature     float64

	ChatURL string
	ChatKey string
}

// NewGraphOpenAIClient creates a client from params.
//
// Example:
//
//	client := openai.NewGraphOpenAIClient(openai.NewGraphOpenAIClientParams{
//		ChatModel: "gpt-4-turbo",
//		ChatURL:   "https://api.openai.com/v1",
//		ChatKey:   os.Getenv("AI_CHAT_KEY"),
//	})
func NewGraphOpenAIClient(
	params NewGraphOpenAIClientParams,
) *GraphOpenAIClient {
	extractionModel := params.ExtractionModel
	if extractionModel == "" {
		extractionModel = params.ChatModel
	}

	return &GraphOpenAIClient{
		chatModel:       params.ChatModel,
		extractionModel: extractionModel,
		temperature:     params.Temperature,
		chatURL:         params.ChatURL,
		ChatClient:      newOpenaiClient(params.ChatURL, params.ChatKey),
	}
}

func newOpenaiClient(
	baseURL string,
	apiKey string,
) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(options...)

	return &client
}
