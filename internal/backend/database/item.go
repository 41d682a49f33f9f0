package database

import (
	"errors"
	"sort"
	"time"
)

// ErrItemNotFound is returned when no item exists for the requested id.
var ErrItemNotFound = errors.New("portfolio item not found")

// PortfolioItem is the metadata record of one uploaded work sample.
// The file bytes live in the blob store under StoredName.
type PortfolioItem struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	OriginalName string    `json:"originalName" db:"original_name"`
	StoredName   string    `json:"storedName" db:"stored_name"`
	MimeType     string    `json:"mimeType" db:"mime_type"`
	SizeBytes    int64     `json:"sizeBytes" db:"size_bytes"`
	URL          string    `json:"url" db:"url"`
	UploadedAt   time.Time `json:"uploadedAt" db:"uploaded_at"`
	Width        int       `json:"width,omitempty" db:"width"`
	Height       int       `json:"height,omitempty" db:"height"`
}

// sortNewestFirst orders items by upload time descending, falling back to id
// so that equal timestamps still produce a stable order.
func sortNewestFirst(items []*PortfolioItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UploadedAt.Equal(items[j].UploadedAt) {
			return items[i].UploadedAt.After(items[j].UploadedAt)
		}
		return items[i].ID > items[j].ID
	})
}
