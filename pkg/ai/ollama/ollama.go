package ollama

import (
	"net/http"
	"net/url"

	"github.com/OFFIS-RIT/kgchat/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// GraphOllamaClient implements ai.GraphAIClient against an Ollama server.
type GraphOllamaClient struct {
	chatModel       string
	extractionModel string
	temperature     float64

	reqLock *semaphore.Weighted

	ai.MetricsRecorder

	baseURL *url.URL

	Client *api.Client
}

// NewGraphOllamaClientParams contains configuration options for creating a new GraphOllamaClient.
//
// MaxConcurrentRequests caps in-flight requests to the server; values
// below one allow a single request at a time.
type NewGraphOllamaClientParams struct {
	ChatModel       string
	ExtractionModel string
	Temperature     float64

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewGraphOllamaClient creates a new Ollama-based AI client.
// It connects to the server at BaseURL, or the Ollama default if empty.
func NewGraphOllamaClient(
	params NewGraphOllamaClientParams,
) (*GraphOllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		u = &url.URL{Scheme: "http", Host: "127.0.0.1:11434"}
	}

	headers := map[string]string{}
	if params.ApiKey != "" {
		headers["Authorization"] = "Bearer " + params.ApiKey
	}
	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: headers,
			rt:      http.DefaultTransport,
		},
	}

	parallel := params.MaxConcurrentRequests
	if parallel < 1 {
		parallel = 1
	}

	extractionModel := params.ExtractionModel
	if extractionModel == "" {
		extractionModel = params.ChatModel
	}

	return &GraphOllamaClient{
		chatModel:       params.ChatModel,
		extractionModel: extractionModel,
		temperature:     params.Temperature,

		reqLock: semaphore.NewWeighted(parallel),

		baseURL: u,

		Client: api.NewClient(u, httpClient),
	}, nil
}
