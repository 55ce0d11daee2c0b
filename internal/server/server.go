package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/kgchat/internal/aiclient"
	mid "github.com/OFFIS-RIT/kgchat/internal/server/middleware"
	"github.com/OFFIS-RIT/kgchat/internal/session"
	"github.com/OFFIS-RIT/kgchat/internal/storage"
	"github.com/OFFIS-RIT/kgchat/internal/util"
	"github.com/OFFIS-RIT/kgchat/pkg/ai"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
	"github.com/OFFIS-RIT/kgchat/pkg/query"

	"github.com/go-playground/validator"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const sessionIdle = 24 * time.Hour

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// NewServer wires app into a ready echo instance with all routes.
func NewServer(app *mid.App, bodyLimit string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))

	RegisterRoutes(e)
	return e
}

// NewApp builds the application from the environment.
func NewApp(ctx context.Context) (*mid.App, error) {
	files, err := storage.NewFileStore(ctx)
	if err != nil {
		return nil, err
	}

	aiClient, err := aiclient.New()
	if err != nil {
		return nil, err
	}

	sessions := session.NewStore(query.NewConversationParams{
		Answerer: query.NewAIAnswerer(aiClient, query.QueryOptions{}),
		Fallback: util.GetEnv("CHAT_FALLBACK_MESSAGE"),
		Tracer:   query.LogTracer{},
	}, int(util.GetEnvNumeric("SESSION_LIMIT", 10000)))

	return &mid.App{
		AiClient:    aiClient,
		Files:       files,
		Sessions:    sessions,
		ChatTimeout: util.GetEnvDuration("AI_TIMEOUT", 2*time.Minute),
	}, nil
}

// checkModel loads the chat model once so that a missing backend or
// model is reported at startup rather than on the first question.
func checkModel(ctx context.Context, client ai.GraphAIClient, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.LoadModel(ctx); err != nil {
		logger.Warn("[AI] Model check failed, chat will answer with the fallback", "err", err)
		return err
	}
	logger.Info("[AI] Model ready")
	return nil
}

func Init() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := NewApp(ctx)
	if err != nil {
		logger.Fatal("Failed to set up application", "err", err)
	}

	e := NewServer(app, util.GetEnvString("BODY_LIMIT", "32M"))

	go pruneSessions(ctx, app.Sessions)
	go checkModel(ctx, app.AiClient, app.ChatTimeout)

	go func() {
		port := util.GetEnvString("PORT", "8080")
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}

func pruneSessions(ctx context.Context, sessions *session.Store) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Prune(sessionIdle); n > 0 {
				logger.Debug("Pruned idle sessions", "count", n)
			}
		}
	}
}
