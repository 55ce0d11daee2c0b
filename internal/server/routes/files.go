package routes

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/OFFIS-RIT/kgchat/internal/server/middleware"
	"github.com/OFFIS-RIT/kgchat/pkg/loader"
	"github.com/OFFIS-RIT/kgchat/pkg/logger"
)

func GetFilesHandler(c echo.Context) error {
	type responseData struct {
		Files []loader.FileInfo `json:"files"`
	}

	ctx := c.Request().Context()
	store := c.(*middleware.AppContext).App.Files

	files, err := store.ListFiles(ctx)
	if err != nil {
		logger.Error("Failed to list csv files", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	return c.JSON(http.StatusOK, responseData{Files: files})
}

// UploadFileHandler stores the multipart field "file" in the CSV library.
// An existing file with the same name is replaced.
func UploadFileHandler(c echo.Context) error {
	upload, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "No file provided"})
	}

	src, err := upload.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "Could not open file"})
	}
	defer src.Close()

	ctx := c.Request().Context()
	store := c.(*middleware.AppContext).App.Files

	info, err := store.PutFile(ctx, upload.Filename, src)
	if err != nil {
		if errors.Is(err, loader.ErrInvalidFileName) {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "Only .csv files with a plain name can be uploaded"})
		}
		logger.Error("Failed to store csv file", "file", upload.Filename, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Internal server error"})
	}

	logger.Info("Stored csv file", "file", info.Name, "size", info.Size)
	return c.JSON(http.StatusCreated, info)
}
