// Package mediainfo inspects uploaded files: content type and, for raster
// images, pixel dimensions.
package mediainfo

import (
	"image"
	"io"
	"log/slog"
	"math"
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/srwiley/oksvg"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMimeType = "application/octet-stream"
	MimeSVG         = "image/svg+xml"
)

// extensionTypes covers common portfolio formats missing from Go's builtin
// table, so detection does not depend on the host's mime.types.
var extensionTypes = map[string]string{
	".txt":  "text/plain; charset=utf-8",
	".md":   "text/markdown; charset=utf-8",
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".ico":  "image/x-icon",
	".heic": "image/heic",
	".zip":  "application/zip",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

func init() {
	for ext, typ := range extensionTypes {
		if err := mime.AddExtensionType(ext, typ); err != nil {
			slog.Warn("mediainfo: failed to register extension type", "extension", ext, "error", err)
		}
	}
}

// DetectMimeType resolves the content type of an upload. The filename
// extension wins, then the sniffed content, then the type the client sent.
func DetectMimeType(filename string, head []byte, declared string) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return stripParams(byExt)
	}

	if len(head) > 0 {
		if sniffed := mimetype.Detect(head); sniffed != nil && !sniffed.Is(DefaultMimeType) {
			return stripParams(sniffed.String())
		}
	}

	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}

	return DefaultMimeType
}

// Dimensions returns the size of an image upload: pixels for raster
// formats, the viewBox (or width/height attributes) for SVG.
func Dimensions(mimeType string, r io.Reader) (width, height int, ok bool) {
	if mimeType == MimeSVG {
		return SVGDimensions(r)
	}
	return ImageDimensions(r)
}

// ImageDimensions returns width and height of a decodable raster image.
// ok is false for anything else (video, documents, SVG).
func ImageDimensions(r io.Reader) (width, height int, ok bool) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return 0, 0, false
	}
	slog.Debug("ImageDimensions: decoded image header", "format", format, "width", cfg.Width, "height", cfg.Height)
	return cfg.Width, cfg.Height, true
}

// SVGDimensions parses the root svg element. oksvg falls back to the width
// and height attributes when there is no viewBox.
func SVGDimensions(r io.Reader) (width, height int, ok bool) {
	icon, err := oksvg.ReadIconStream(r)
	if err != nil {
		slog.Debug("SVGDimensions: failed to parse SVG", "error", err)
		return 0, 0, false
	}
	width = int(math.Round(icon.ViewBox.W))
	height = int(math.Round(icon.ViewBox.H))
	if width <= 0 || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// IsImage reports whether mimeType is an image/* type.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

func stripParams(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	return mediaType
}
