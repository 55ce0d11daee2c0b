package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/kgchat/internal/server/middleware"
	"github.com/OFFIS-RIT/kgchat/pkg/common"
	"github.com/OFFIS-RIT/kgchat/pkg/graph"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
	"github.com/OFFIS-RIT/kgchat/pkg/query"
)

type chatRequest struct {
	Message string `json:"message" validate:"required"`
}

// ChatResponse is the body returned for one chat turn.
type ChatResponse struct {
	Answer    string          `json:"answer"`
	Fallback  bool            `json:"fallback"`
	Retrieval graph.Retrieval `json:"retrieval"`
	History   []common.Turn   `json:"history"`
}

func newChatResponse(ex query.Exchange, conv *query.Conversation) ChatResponse {
	return ChatResponse{
		Answer:    ex.Answer.Content,
		Fallback:  ex.Fallback,
		Retrieval: ex.Retrieval,
		History:   conv.History(),
	}
}

func chatContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	timeout := c.(*middleware.AppContext).App.ChatTimeout
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func GetChatHandler(c echo.Context) error {
	type responseData struct {
		History []common.Turn `json:"history"`
	}

	st := c.(*middleware.AppContext).Session
	return c.JSON(http.StatusOK, responseData{History: st.Conversation.History()})
}

// PostChatHandler runs one question through retrieval and the model. Model
// failures are not errors here: the fallback answer is recorded instead.
func PostChatHandler(c echo.Context) error {
	data := new(chatRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	ctx, cancel := chatContext(c)
	defer cancel()

	st := c.(*middleware.AppContext).Session
	ex := st.Conversation.Ask(ctx, st.Handle(), data.Message)

	return c.JSON(http.StatusOK, newChatResponse(ex, st.Conversation))
}

// PostChatStreamHandler is PostChatHandler with newline-delimited JSON
// output. Every line carries the answer so far; the last line has Done set
// and the full result.
func PostChatStreamHandler(c echo.Context) error {
	type streamResponse struct {
		Message string `json:"message"`
		Done    bool   `json:"done"`
		*ChatResponse
	}

	data := new(chatRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	ctx, cancel := chatContext(c)
	defer cancel()

	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().WriteHeader(http.StatusOK)

	enc := json.NewEncoder(c.Response())
	var message string
	var writeErr error

	st := c.(*middleware.AppContext).Session
	ex := st.Conversation.AskStream(ctx, st.Handle(), data.Message, func(delta string) {
		if writeErr != nil {
			return
		}
		message += delta
		if writeErr = enc.Encode(streamResponse{Message: message}); writeErr != nil {
			logger.Debug("Client left during chat stream", "err", writeErr)
			cancel()
			return
		}
		c.Response().Flush()
	})
	if writeErr != nil {
		return nil
	}

	resp := newChatResponse(ex, st.Conversation)
	if err := enc.Encode(streamResponse{Message: resp.Answer, Done: true, ChatResponse: &resp}); err != nil {
		return nil
	}
	c.Response().Flush()
	return nil
}

func DeleteChatHandler(c echo.Context) error {
	st := c.(*middleware.AppContext).Session
	st.Conversation.Clear()
	return c.NoContent(http.StatusNoContent)
}
