package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mid "github.com/OFFIS-RIT/kgchat/internal/server/middleware"
	"github.com/OFFIS-RIT/kgchat/internal/session"
	"github.com/OFFIS-RIT/kgchat/pkg/ai"
	loaderio "github.com/OFFIS-RIT/kgchat/pkg/loader/io"
	"github.com/OFFIS-RIT/kgchat/pkg/query"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type client struct {
	t       *testing.T
	e       *echo.Echo
	cookies []*http.Cookie
}

func newTestServer(t *testing.T, answerer query.Answerer) *echo.Echo {
	t.Helper()
	files, err := loaderio.NewDirGraphFileStore(t.TempDir())
	require.NoError(t, err)

	app := &mid.App{
		Files: files,
		Sessions: session.NewStore(query.NewConversationParams{
			Answerer: answerer,
		}, 0),
	}
	return NewServer(app, "1M")
}

func newClient(t *testing.T, e *echo.Echo) *client {
	return &client{t: t, e: e}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)
	if cookies := rec.Result().Cookies(); len(cookies) > 0 {
		c.cookies = cookies
	}
	return rec
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) postJSON(path string, body any) *httptest.ResponseRecorder {
	raw, err := json.Marshal(body)
	require.NoError(c.t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return c.do(req)
}

func (c *client) upload(name string, content []byte) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(c.t, err)
	_, err = part.Write(content)
	require.NoError(c.t, err)
	require.NoError(c.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return c.do(req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func contextAnswerer() query.Answerer {
	return query.AnswererFunc(func(ctx context.Context, graphContext, question string) (string, error) {
		return "Context: " + graphContext, nil
	})
}

func TestHealth(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestIndex(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/graph/load")
}

func TestSessionCookie(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))
	rec := c.get("/api/chat")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, c.cookies, 1)
	assert.Equal(t, session.CookieName, c.cookies[0].Name)
	assert.True(t, c.cookies[0].HttpOnly)

	first := c.cookies[0].Value
	c.get("/api/chat")
	assert.Equal(t, first, c.cookies[0].Value)
}

func TestFiles(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	rec := c.upload("physics.csv", []byte("Newton,Gravity,proposed\n"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = c.upload("notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.get("/api/files")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Files []struct {
			Name string `json:"name"`
		} `json:"files"`
	}](t, rec)
	require.Len(t, body.Files, 1)
	assert.Equal(t, "physics.csv", body.Files[0].Name)
}

func TestLoadGraph(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	rec := c.get("/api/graph")
	assert.JSONEq(t, `{"loaded":false}`, rec.Body.String())
	rec = c.get("/api/graph/view")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusCreated, c.upload("physics.csv", []byte("Newton,Gravity,proposed\nEinstein,Relativity,developed\n")).Code)
	require.Equal(t, http.StatusCreated, c.upload("broken.csv", []byte{0xff, 0xfe, ',', 'a'}).Code)

	rec = c.postJSON("/api/graph/load", map[string]string{"file": "physics.csv"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"file":"physics.csv","nodes":4,"edges":2}`, rec.Body.String())

	rec = c.postJSON("/api/graph/load", map[string]string{"file": "broken.csv"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = c.postJSON("/api/graph/load", map[string]string{"file": "missing.csv"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.postJSON("/api/graph/load", map[string]string{"file": "../etc/passwd"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.postJSON("/api/graph/load", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.get("/api/graph")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"loaded": true,
		"file": "physics.csv",
		"nodes": ["Newton", "Gravity", "Einstein", "Relativity"],
		"edges": [
			{"source": "Newton", "target": "Gravity", "label": "proposed"},
			{"source": "Einstein", "target": "Relativity", "label": "developed"}
		]
	}`, rec.Body.String())

	rec = c.get("/api/graph/view")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>physics.csv</title>")
}

func TestGraphIsPerSession(t *testing.T) {
	e := newTestServer(t, nil)
	a := newClient(t, e)
	b := newClient(t, e)

	require.Equal(t, http.StatusCreated, a.upload("physics.csv", []byte("Newton,Gravity,proposed\n")).Code)
	require.Equal(t, http.StatusOK, a.postJSON("/api/graph/load", map[string]string{"file": "physics.csv"}).Code)

	assert.JSONEq(t, `{"loaded":false}`, b.get("/api/graph").Body.String())
}

func TestRetrieve(t *testing.T) {
	c := newClient(t, newTestServer(t, nil))

	rec := c.postJSON("/api/graph/retrieve", map[string]string{"query": "Newton"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "no_graph", body["status"])

	require.Equal(t, http.StatusCreated, c.upload("physics.csv", []byte("Newton,Gravity,proposed\n")).Code)
	require.Equal(t, http.StatusOK, c.postJSON("/api/graph/load", map[string]string{"file": "physics.csv"}).Code)

	rec = c.postJSON("/api/graph/retrieve", map[string]string{"query": "proposed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{
		"status": "matched",
		"triples": [{"source": "Newton", "target": "Gravity", "relation": "proposed"}],
		"nodes": [],
		"context": "Newton -[proposed]-> Gravity"
	}`, rec.Body.String())

	rec = c.postJSON("/api/graph/retrieve", map[string]string{"query": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat(t *testing.T) {
	c := newClient(t, newTestServer(t, contextAnswerer()))
	require.Equal(t, http.StatusCreated, c.upload("physics.csv", []byte("Newton,Gravity,proposed\n")).Code)
	require.Equal(t, http.StatusOK, c.postJSON("/api/graph/load", map[string]string{"file": "physics.csv"}).Code)

	rec := c.postJSON("/api/chat", map[string]string{"message": "What did Newton do?"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[chatBody](t, rec)
	assert.Equal(t, "Context: Newton -[proposed]-> Gravity", body.Answer)
	assert.False(t, body.Fallback)
	assert.Len(t, body.History, 2)

	rec = c.postJSON("/api/chat", map[string]string{"message": "quantum"})
	body = decode[chatBody](t, rec)
	assert.Equal(t, "Context: No relevant information found in the knowledge graph.", body.Answer)
	assert.Len(t, body.History, 4)

	rec = c.postJSON("/api/chat", map[string]string{"message": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(httptest.NewRequest(http.MethodDelete, "/api/chat", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.JSONEq(t, `{"history":[]}`, c.get("/api/chat").Body.String())
}

type chatBody struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
	History  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history"`
}

func TestChatFallback(t *testing.T) {
	failing := query.AnswererFunc(func(ctx context.Context, graphContext, question string) (string, error) {
		return "", errors.New("model offline")
	})
	c := newClient(t, newTestServer(t, failing))

	rec := c.postJSON("/api/chat", map[string]string{"message": "Hello"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[chatBody](t, rec)
	assert.True(t, body.Fallback)
	assert.Equal(t, query.FallbackAnswer, body.Answer)
	require.Len(t, body.History, 2)
	assert.Equal(t, "user", body.History[0].Role)
	assert.Equal(t, "assistant", body.History[1].Role)
}

func TestChatStream(t *testing.T) {
	c := newClient(t, newTestServer(t, contextAnswerer()))

	rec := c.postJSON("/api/chat/stream", map[string]string{"message": "Hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var lines []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 2)

	want := "Context: No relevant information found in the knowledge graph."
	assert.Equal(t, want, lines[0]["message"])
	assert.Equal(t, false, lines[0]["done"])
	assert.Equal(t, want, lines[1]["message"])
	assert.Equal(t, true, lines[1]["done"])
	assert.Len(t, lines[1]["history"], 2)
}

type loadModelClient struct {
	ai.GraphAIClient
	err      error
	deadline bool
}

func (c *loadModelClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	_, c.deadline = ctx.Deadline()
	return c.err
}

func TestCheckModel(t *testing.T) {
	ok := &loadModelClient{}
	require.NoError(t, checkModel(context.Background(), ok, time.Second))
	assert.True(t, ok.deadline)

	down := &loadModelClient{err: errors.New("connection refused")}
	assert.ErrorContains(t, checkModel(context.Background(), down, time.Second), "connection refused")
}
