package middleware

import (
	"time"

	"github.com/OFFIS-RIT/kgchat/internal/session"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/kgchat/pkg/ai"
	"github.com/OFFIS-RIT/kgchat/pkg/loader"
)

type App struct {
	AiClient ai.GraphAIClient
	Files    loader.GraphFileStore
	Sessions *session.Store

	// ChatTimeout bounds a single chat turn. Zero means no limit.
	ChatTimeout time.Duration
}

type AppContext struct {
	echo.Context
	App     *App
	Session *session.State
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{Context: c, App: app}
			return next(cc)
		}
	}
}
