package database

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// GenerateID returns a new random (v4) UUID string.
func GenerateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// maxExtensionLen bounds the extension kept in a blob key, dot included.
const maxExtensionLen = 16

// StoredName derives the blob key of an item: its id plus the lowercased
// extension of the client-supplied filename. Extensions holding anything
// but ASCII letters and digits are dropped, so the key stays a plain name.
func StoredName(id, originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if len(ext) < 2 || len(ext) > maxExtensionLen {
		return id
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return id
		}
	}
	return id + ext
}
