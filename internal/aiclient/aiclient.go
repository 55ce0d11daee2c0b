package aiclient

import (
	"fmt"

	"github.com/OFFIS-RIT/kgchat/internal/util"

	"github.com/OFFIS-RIT/kgchat/pkg/ai"
	oai "github.com/OFFIS-RIT/kgchat/pkg/ai/ollama"
	gai "github.com/OFFIS-RIT/kgchat/pkg/ai/openai"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
)

// New builds the model client selected by AI_ADAPTER. A missing
// AI_CHAT_KEY for the openai adapter is logged; the client is still
// returned and every call on it fails with ai.ErrNoClient.
func New() (ai.GraphAIClient, error) {
	adapter := util.GetEnvString("AI_ADAPTER", "openai")
	temperature := util.GetEnvNumeric("AI_TEMPERATURE", 0)

	switch adapter {
	case "ollama":
		client, err := oai.NewGraphOllamaClient(oai.NewGraphOllamaClientParams{
			ChatModel:       util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),
			Temperature:     temperature,

			BaseURL: util.GetEnv("AI_CHAT_URL"),
			ApiKey:  util.GetEnv("AI_CHAT_KEY"),

			MaxConcurrentRequests: int64(util.GetEnvNumeric("AI_PARALLEL_REQ", 4)),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return client, nil
	case "openai":
		if err := util.RequireEnv("AI_CHAT_KEY", "AI_CHAT_MODEL"); err != nil {
			logger.Warn("Language model is not configured, chat will answer with the fallback", "err", err)
		}
		return gai.NewGraphOpenAIClient(gai.NewGraphOpenAIClientParams{
			ChatModel:       util.GetEnv("AI_CHAT_MODEL"),
			ExtractionModel: util.GetEnv("AI_EXTRACT_MODEL"),
			Temperature:     temperature,

			ChatURL: util.GetEnv("AI_CHAT_URL"),
			ChatKey: util.GetEnv("AI_CHAT_KEY"),
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI_ADAPTER %q", adapter)
	}
}
