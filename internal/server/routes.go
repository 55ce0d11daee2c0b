package server

import (
	"github.com/OFFIS-RIT/kgchat/internal/server/middleware"
	"github.com/OFFIS-RIT/kgchat/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	e.GET("/", routes.IndexHandler)

	apiRoutes := e.Group("/api", middleware.SessionMiddleware)

	// CSV library routes
	apiRoutes.GET("/files", routes.GetFilesHandler)
	apiRoutes.POST("/files", routes.UploadFileHandler)

	// Graph routes
	apiRoutes.POST("/graph/load", routes.LoadGraphHandler)
	apiRoutes.GET("/graph", routes.GetGraphHandler)
	apiRoutes.GET("/graph/view", routes.ViewGraphHandler)
	apiRoutes.POST("/graph/retrieve", routes.RetrieveHandler)

	// Chat routes
	apiRoutes.GET("/chat", routes.GetChatHandler)
	apiRoutes.POST("/chat", routes.PostChatHandler)
	apiRoutes.POST("/chat/stream", routes.PostChatStreamHandler)
	apiRoutes.DELETE("/chat", routes.DeleteChatHandler)
}
