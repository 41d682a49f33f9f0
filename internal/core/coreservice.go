package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jo-hoe/goportfolio/internal/backend/database"
	"github.com/jo-hoe/goportfolio/internal/backend/mediainfo"
	"github.com/jo-hoe/goportfolio/internal/backend/storage"
)

// sniffLen is how much of an upload is read for content sniffing.
const sniffLen = 3072

// ErrMissingFile is returned when an upload carries no file content.
var ErrMissingFile = errors.New("no file uploaded")

// Upload is a fully buffered file plus its form fields.
type Upload struct {
	Title        string
	Description  string
	OriginalName string
	DeclaredType string
	Size         int64
	Content      io.ReadSeeker
}

type CoreService struct {
	databaseService database.DatabaseService
	storage         storage.Storage

	now          func() time.Time
	mu           sync.Mutex
	lastUploaded time.Time
}

// NewCoreService opens the metadata and blob stores named in config.
func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}

	blobStorage, err := storage.NewStorage(config.Storage)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("storage initialized successfully", "type", config.Storage.Type)

	return &CoreService{
		databaseService: databaseService,
		storage:         blobStorage,
		now:             time.Now,
	}, nil
}

// Storage exposes the blob store, e.g. to serve local files.
func (service *CoreService) Storage() storage.Storage {
	return service.storage
}

// GetItems lists all items, newest first.
func (service *CoreService) GetItems(ctx context.Context) ([]*database.PortfolioItem, error) {
	return service.databaseService.GetItems(ctx)
}

// AddItem writes the blob, then the metadata. When the metadata insert
// fails the blob is removed again, best effort.
func (service *CoreService) AddItem(ctx context.Context, upload *Upload) (*database.PortfolioItem, error) {
	if upload == nil || upload.Content == nil {
		return nil, ErrMissingFile
	}

	head, err := readHead(upload.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	mimeType := mediainfo.DetectMimeType(upload.OriginalName, head, upload.DeclaredType)

	var width, height int
	if mediainfo.IsImage(mimeType) {
		if w, h, ok := mediainfo.Dimensions(mimeType, upload.Content); ok {
			width, height = w, h
		}
		if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("failed to rewind upload: %w", err)
		}
	}

	id, err := database.GenerateID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate id: %w", err)
	}
	storedName := database.StoredName(id, upload.OriginalName)

	title := strings.TrimSpace(upload.Title)
	if title == "" {
		title = upload.OriginalName
	}

	if err := service.storage.Save(ctx, storedName, upload.Content, mimeType); err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	item := &database.PortfolioItem{
		ID:           id,
		Title:        title,
		Description:  strings.TrimSpace(upload.Description),
		OriginalName: upload.OriginalName,
		StoredName:   storedName,
		MimeType:     mimeType,
		SizeBytes:    upload.Size,
		URL:          service.storage.GetURL(storedName),
		UploadedAt:   service.nextUploadTime(),
		Width:        width,
		Height:       height,
	}

	if err := service.databaseService.CreateItem(ctx, item); err != nil {
		if cerr := service.storage.Delete(ctx, storedName); cerr != nil {
			slog.Warn("AddItem: orphaned blob after failed insert", "stored_name", storedName, "error", cerr)
		}
		return nil, fmt.Errorf("failed to save item metadata: %w", err)
	}

	slog.Info("portfolio item added", "item_id", item.ID, "mime_type", item.MimeType, "size_bytes", item.SizeBytes)
	return item, nil
}

// DeleteItem removes the metadata, then the blob. A blob that cannot be
// removed is logged and left behind; the item is gone either way.
func (service *CoreService) DeleteItem(ctx context.Context, id string) error {
	item, err := service.databaseService.DeleteItem(ctx, id)
	if err != nil {
		return err
	}

	if err := service.storage.Delete(ctx, item.StoredName); err != nil {
		slog.Warn("DeleteItem: failed to remove blob", "item_id", id, "stored_name", item.StoredName, "error", err)
	}

	slog.Info("portfolio item deleted", "item_id", id)
	return nil
}

// Healthy reports whether the metadata store is reachable.
func (service *CoreService) Healthy() bool {
	return service.databaseService.DoesDatabaseExist()
}

func (service *CoreService) Close() error {
	return service.databaseService.Close()
}

// nextUploadTime returns the current time, nudged forward when needed so
// upload times are strictly increasing within this process.
func (service *CoreService) nextUploadTime() time.Time {
	service.mu.Lock()
	defer service.mu.Unlock()

	t := service.now().UTC()
	if !t.After(service.lastUploaded) {
		t = service.lastUploaded.Add(time.Nanosecond)
	}
	service.lastUploaded = t
	return t
}

// readHead returns the first bytes of content and rewinds it.
func readHead(content io.ReadSeeker) ([]byte, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(content, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return head[:n], nil
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}
