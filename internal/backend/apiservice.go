package backend

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"

	"github.com/jo-hoe/goportfolio/internal/backend/database"
	"github.com/jo-hoe/goportfolio/internal/backend/storage"
	"github.com/jo-hoe/goportfolio/internal/common"
	"github.com/jo-hoe/goportfolio/internal/core"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	AdminKeyHeader = "x-admin-key"
	fileField      = "file"
)

type APIService struct {
	config      *core.ServiceConfig
	coreService *core.CoreService
}

type ListResponse struct {
	OK    bool                      `json:"ok"`
	Items []*database.PortfolioItem `json:"items"`
}

type ItemResponse struct {
	OK   bool                    `json:"ok"`
	Item *database.PortfolioItem `json:"item"`
}

type StatusResponse struct {
	OK     bool   `json:"ok"`
	Status string `json:"status,omitempty"`
}

type uploadForm struct {
	Title       string `form:"title" validate:"max=200"`
	Description string `form:"description" validate:"max=2000"`
}

func NewAPIService(config *core.ServiceConfig, coreService *core.CoreService) *APIService {
	return &APIService{
		config:      config,
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	// Set probe route
	e.GET("/probe", func(c echo.Context) error {
		if !s.coreService.Healthy() {
			return c.String(http.StatusServiceUnavailable, "metadata store unreachable")
		}
		return c.String(http.StatusOK, "API Service is running")
	})
	e.HEAD("/probe", func(c echo.Context) error {
		if !s.coreService.Healthy() {
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	api := e.Group(common.APIPrefix)
	api.GET("/health", s.healthHandler)
	api.GET("/portfolio", s.listHandler)
	api.POST("/portfolio/upload", s.uploadHandler, middleware.BodyLimit(s.maxUploadSize()))
	api.DELETE("/portfolio/:id", s.deleteHandler)

	// Local blobs are served straight from disk
	if local, ok := s.coreService.Storage().(*storage.LocalStorage); ok {
		e.Static(local.PublicPath(), local.BasePath())
	}
}

func (s *APIService) maxUploadSize() string {
	if s.config.Upload.MaxSize == "" {
		return core.DefaultMaxUploadSize
	}
	return s.config.Upload.MaxSize
}

func (s *APIService) healthHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, StatusResponse{OK: true, Status: "healthy"})
}

func (s *APIService) listHandler(ctx echo.Context) error {
	items, err := s.coreService.GetItems(ctx.Request().Context())
	if err != nil {
		slog.Error("listHandler: failed to list items",
			"status", http.StatusInternalServerError, "error", err)
		return common.JSONError(ctx, http.StatusInternalServerError, err.Error())
	}

	ctx.Response().Header().Set("Cache-Control", "no-store")
	return ctx.JSON(http.StatusOK, ListResponse{OK: true, Items: items})
}

func (s *APIService) uploadHandler(ctx echo.Context) error {
	// Multipart parts spilled to disk by the form parser
	defer func() {
		if form := ctx.Request().MultipartForm; form != nil {
			if err := form.RemoveAll(); err != nil {
				slog.Warn("uploadHandler: failed to remove multipart temp files", "error", err)
			}
		}
	}()

	if s.config.Auth.RequireAdminForUpload && !s.isAdmin(ctx) {
		slog.Warn("uploadHandler: rejected upload without valid admin key", "status", http.StatusUnauthorized)
		return common.JSONError(ctx, http.StatusUnauthorized, "unauthorized")
	}

	file, err := ctx.FormFile(fileField)
	if err != nil {
		return uploadError(ctx, err)
	}

	var form uploadForm
	if err := ctx.Bind(&form); err != nil {
		return uploadError(ctx, err)
	}
	if err := ctx.Validate(&form); err != nil {
		return uploadError(ctx, err)
	}

	content, cleanup, err := s.bufferUpload(file)
	if err != nil {
		slog.Error("uploadHandler: failed to buffer uploaded file",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return common.JSONError(ctx, http.StatusInternalServerError, err.Error())
	}
	defer cleanup()

	item, err := s.coreService.AddItem(ctx.Request().Context(), &core.Upload{
		Title:        form.Title,
		Description:  form.Description,
		OriginalName: file.Filename,
		DeclaredType: file.Header.Get(echo.HeaderContentType),
		Size:         file.Size,
		Content:      content,
	})
	if err != nil {
		slog.Error("uploadHandler: failed to add item",
			"status", http.StatusInternalServerError, "error", err, "filename", file.Filename)
		return common.JSONError(ctx, http.StatusInternalServerError, err.Error())
	}

	return ctx.JSON(http.StatusOK, ItemResponse{OK: true, Item: item})
}

func (s *APIService) deleteHandler(ctx echo.Context) error {
	if !s.isAdmin(ctx) {
		slog.Warn("deleteHandler: rejected delete without valid admin key",
			"status", http.StatusUnauthorized, "item_id", ctx.Param("id"))
		return common.JSONError(ctx, http.StatusUnauthorized, "unauthorized")
	}

	id := ctx.Param("id")
	err := s.coreService.DeleteItem(ctx.Request().Context(), id)
	if errors.Is(err, database.ErrItemNotFound) {
		return common.JSONError(ctx, http.StatusNotFound, "not found")
	}
	if err != nil {
		slog.Error("deleteHandler: failed to delete item",
			"status", http.StatusInternalServerError, "item_id", id, "error", err)
		return common.JSONError(ctx, http.StatusInternalServerError, err.Error())
	}

	return ctx.JSON(http.StatusOK, StatusResponse{OK: true})
}

// isAdmin compares the admin header with the configured secret. Without a
// configured secret nobody is admin.
func (s *APIService) isAdmin(ctx echo.Context) bool {
	expected := s.config.Auth.AdminKey
	if expected == "" {
		return false
	}
	got := ctx.Request().Header.Get(AdminKeyHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// bufferUpload reads the whole upload into memory or into a temp file,
// depending on upload.buffer. cleanup closes and removes the temp file.
func (s *APIService) bufferUpload(file *multipart.FileHeader) (io.ReadSeeker, func(), error) {
	src, err := file.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("bufferUpload: failed to close uploaded file reader", "error", cerr, "filename", file.Filename)
		}
	}()

	if s.config.Upload.Buffer == core.BufferMemory {
		data, err := io.ReadAll(src)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read uploaded file: %w", err)
		}
		return bytes.NewReader(data), func() {}, nil
	}

	tmp, err := os.CreateTemp(s.config.Upload.TempDir, "upload-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() {
		_ = tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("bufferUpload: failed to remove temp file", "path", tmp.Name(), "error", err)
		}
	}

	if _, err := io.Copy(tmp, src); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to buffer uploaded file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to rewind temp file: %w", err)
	}
	return tmp, cleanup, nil
}

// uploadError maps form parsing failures: echo HTTP errors (body limit,
// validation) keep their status, a missing or unparsable file part is a bad
// request.
func uploadError(ctx echo.Context, err error) error {
	status := http.StatusBadRequest
	message := core.ErrMissingFile.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
	}
	slog.Warn("uploadHandler: invalid upload request", "status", status, "error", err)
	return common.JSONError(ctx, status, message)
}
