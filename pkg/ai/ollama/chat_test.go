package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/kgchat/pkg/ai"

	"github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeTokens(t *testing.T, n int) {
	t.Helper()
	prev := tokenCount
	tokenCount = func(string) (int, error) { return n, nil }
	t.Cleanup(func() { tokenCount = prev })
}

func chatServer(t *testing.T, chunks []string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for i, c := range chunks {
			resp := map[string]any{
				"model":   "m",
				"message": map[string]any{"role": "assistant", "content": c},
				"done":    i == len(chunks)-1,
			}
			if i == len(chunks)-1 {
				resp["prompt_eval_count"] = 7
				resp["eval_count"] = 3
			}
			_ = enc.Encode(resp)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, url string) *GraphOllamaClient {
	t.Helper()
	client, err := NewGraphOllamaClient(NewGraphOllamaClientParams{
		ChatModel:   "m",
		Temperature: 0.2,
		BaseURL:     url,
	})
	require.NoError(t, err)
	return client
}

func TestGenerateChat(t *testing.T) {
	fakeTokens(t, 10)
	var req map[string]any
	srv := chatServer(t, []string{"Newton ", "proposed it."}, &req)
	client := newTestClient(t, srv.URL)

	answer, err := client.GenerateChat(context.Background(), []ai.ChatMessage{
		{Role: "user", Message: "Who proposed gravity?"},
	}, ai.WithSystemPrompts(ai.GraphExpertPrompt))
	require.NoError(t, err)
	assert.Equal(t, "Newton proposed it.", answer)

	msgs := req["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	opts := req["options"].(map[string]any)
	assert.NotContains(t, opts, "num_ctx")

	m := client.GetMetrics()
	assert.Equal(t, 7, m.InputTokens)
	assert.Equal(t, 10, m.TotalTokens)
}

func TestLargeContextWindow(t *testing.T) {
	fakeTokens(t, 10000)
	var req map[string]any
	srv := chatServer(t, []string{"ok"}, &req)
	client := newTestClient(t, srv.URL)

	_, err := client.GenerateCompletion(context.Background(), "long prompt")
	require.NoError(t, err)
	opts := req["options"].(map[string]any)
	assert.Equal(t, float64(10000+responseReserve), opts["num_ctx"])
}

func TestTokenCountFailureKeepsDefaultWindow(t *testing.T) {
	prev := tokenCount
	tokenCount = func(string) (int, error) { return 0, errors.New("bpe download failed") }
	t.Cleanup(func() { tokenCount = prev })

	var req map[string]any
	srv := chatServer(t, []string{"still answered"}, &req)
	client := newTestClient(t, srv.URL)

	answer, err := client.GenerateChat(context.Background(), []ai.ChatMessage{{Role: "user", Message: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "still answered", answer)
	opts := req["options"].(map[string]any)
	assert.NotContains(t, opts, "num_ctx")
}

func TestEncodingRetriesAfterFailure(t *testing.T) {
	prevLoad := loadEncoding
	encMu.Lock()
	prevEnc := enc
	enc = nil
	encMu.Unlock()
	t.Cleanup(func() {
		loadEncoding = prevLoad
		encMu.Lock()
		enc = prevEnc
		encMu.Unlock()
	})

	calls := 0
	loaded := &tiktoken.Tiktoken{}
	loadEncoding = func(string) (*tiktoken.Tiktoken, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("illegal base64 data at input byte 0")
		}
		return loaded, nil
	}

	_, err := encoding()
	require.Error(t, err)

	got, err := encoding()
	require.NoError(t, err)
	assert.Same(t, loaded, got)

	got, err = encoding()
	require.NoError(t, err)
	assert.Same(t, loaded, got)
	assert.Equal(t, 2, calls)
}

func TestEmptyAnswer(t *testing.T) {
	fakeTokens(t, 1)
	srv := chatServer(t, []string{"  "}, nil)
	client := newTestClient(t, srv.URL)

	_, err := client.GenerateChat(context.Background(), []ai.ChatMessage{{Role: "user", Message: "hi"}})
	assert.True(t, errors.Is(err, ai.ErrEmptyResponse))
}

func TestGenerateCompletionWithFormat(t *testing.T) {
	fakeTokens(t, 1)
	var req map[string]any
	srv := chatServer(t, []string{`{"name": 'Newton'}`}, &req)
	client := newTestClient(t, srv.URL)

	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, client.GenerateCompletionWithFormat(context.Background(), "person", "a person", "who?", &out))
	assert.Equal(t, "Newton", out.Name)
	assert.NotNil(t, req["format"])

	var notPointer struct{}
	assert.Error(t, client.GenerateCompletionWithFormat(context.Background(), "x", "x", "x", notPointer))
}

func TestGenerateChatStream(t *testing.T) {
	fakeTokens(t, 1)
	srv := chatServer(t, []string{"a", "b", "c"}, nil)
	client := newTestClient(t, srv.URL)

	events, err := client.GenerateChatStream(context.Background(), []ai.ChatMessage{{Role: "user", Message: "hi"}})
	require.NoError(t, err)

	var sb strings.Builder
	for ev := range events {
		require.Equal(t, "content", ev.Type)
		sb.WriteString(ev.Content)
	}
	assert.Equal(t, "abc", sb.String())
}
