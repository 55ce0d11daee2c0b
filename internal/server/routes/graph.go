package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/kgchat/internal/server/middleware"
	"github.com/OFFIS-RIT/kgchat/pkg/common"
	"github.com/OFFIS-RIT/kgchat/pkg/graph"
	"github.com/OFFIS-RIT/kgchat/pkg/loader"
	csvloader "github.com/OFFIS-RIT/kgchat/pkg/loader/csv"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
)

type graphResponse struct {
	Loaded bool   `json:"loaded"`
	File   string `json:"file,omitempty"`
	*common.SerializedGraph
}

// LoadGraphHandler builds a graph from a stored CSV and makes it the
// session graph. When reading fails the previous graph stays in place.
func LoadGraphHandler(c echo.Context) error {
	type loadGraphRequest struct {
		File string `json:"file" validate:"required"`
	}

	type responseData struct {
		File  string `json:"file"`
		Nodes int    `json:"nodes"`
		Edges int    `json:"edges"`
	}

	data := new(loadGraphRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	ctx := c.Request().Context()
	cc := c.(*middleware.AppContext)

	file, err := cc.App.Files.Open(ctx, data.File)
	if err != nil {
		return fileError(c, data.File, err)
	}

	g, err := graph.LoadFile(ctx, file)
	if err != nil {
		return fileError(c, data.File, err)
	}
	cc.Session.SetGraph(file.ID, g)

	return c.JSON(http.StatusOK, responseData{
		File:  file.ID,
		Nodes: g.NodeCount(),
		Edges: g.EdgeCount(),
	})
}

func fileError(c echo.Context, name string, err error) error {
	switch {
	case errors.Is(err, loader.ErrInvalidFileName):
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid file name"})
	case errors.Is(err, loader.ErrFileNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"message": "File not found"})
	case errors.Is(err, csvloader.ErrFileRead):
		logger.Warn("Failed to read csv file", "file", name, "err", err)
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"message": err.Error()})
	default:
		logger.Error("Failed to load graph", "file", name, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}
}

func GetGraphHandler(c echo.Context) error {
	st := c.(*middleware.AppContext).Session

	g, file, ok := st.Loaded()
	if !ok {
		return c.JSON(http.StatusOK, graphResponse{Loaded: false})
	}

	s := g.Serialize()
	return c.JSON(http.StatusOK, graphResponse{
		Loaded:          true,
		File:            file,
		SerializedGraph: &s,
	})
}

// ViewGraphHandler renders the session graph as a standalone HTML page.
func ViewGraphHandler(c echo.Context) error {
	st := c.(*middleware.AppContext).Session

	g, file, ok := st.Loaded()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "No graph loaded"})
	}

	opts := graph.DefaultRenderOptions()
	if file != "" {
		opts.Title = file
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	if err := graph.RenderHTML(c.Response(), g, opts); err != nil {
		logger.Error("Failed to render graph", "err", err)
		return err
	}
	return nil
}

func RetrieveHandler(c echo.Context) error {
	type retrieveRequest struct {
		Query string `json:"query" validate:"required"`
	}

	type responseData struct {
		graph.Retrieval
		Context string `json:"context"`
	}

	data := new(retrieveRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
	}

	st := c.(*middleware.AppContext).Session
	res := graph.Retrieve(st.Handle(), data.Query)

	return c.JSON(http.StatusOK, responseData{Retrieval: res, Context: res.Context()})
}
