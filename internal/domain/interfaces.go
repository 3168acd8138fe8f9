package domain

import (
	"context"
	"io"
	"time"
)

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetMaxFileSize() int64
	GetAllowedOrigins() []string
	GetStyleFile() string
	GetCompressPDF() bool
	GetPreviewDPI() float64
	GetRenderTimeout() time.Duration
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetExportBucket() string
	GetSessionTTL() time.Duration
}

// FontHandle refers to a font resource embedded in a document.
type FontHandle interface {
	FontName() string
}

// ImageHandle refers to a raster image resource embedded in a document.
type ImageHandle interface {
	ResourceName() string
	// Bounds returns the pixel size of the embedded image.
	Bounds() (width, height int)
}

// TextOptions positions a run of text. X and Y locate the baseline start
// in bottom-left page space.
type TextOptions struct {
	X, Y  float64
	Font  FontHandle
	Size  float64
	Color UnitRGB
}

// RectOptions describes a filled rectangle whose bottom-left corner is (X, Y).
type RectOptions struct {
	X, Y          float64
	Width, Height float64
	Color         UnitRGB
	Opacity       float64
}

// LineOptions describes a straight stroke from (X1, Y1) to (X2, Y2).
type LineOptions struct {
	X1, Y1, X2, Y2 float64
	Thickness      float64
	Color          UnitRGB
	Opacity        float64
}

// ImageOptions places an image with its bottom-left corner at (X, Y).
type ImageOptions struct {
	X, Y          float64
	Width, Height float64
	Opacity       float64
}

// Canvas is the drawing surface of a single page. All coordinates are in
// bottom-left page space and all colors use unit-scaled channels.
type Canvas interface {
	DrawText(text string, opts TextOptions) error
	DrawRectangle(opts RectOptions) error
	DrawLine(opts LineOptions) error
	DrawImage(img ImageHandle, opts ImageOptions) error
}

// ImageEmbedder embeds raster images as reusable document resources.
type ImageEmbedder interface {
	EmbedRasterImage(data []byte) (ImageHandle, error)
}

// ExportStorage stores exported documents outside the process.
type ExportStorage interface {
	// Upload stores data under path and returns the stored object's key.
	Upload(ctx context.Context, path string, data io.Reader, contentType string) (string, error)
}
