package domain

import (
	"context"
	"image"
	"io"
	"time"
)

// RenderEngine is the rasterization capability for one opened document.
type RenderEngine interface {
	NumPages() int
	// Page returns the handle for a 1-based page index.
	Page(ctx context.Context, index int) (PageHandle, error)
	Close() error
}

// PageHandle queries the size of a single page and rasterizes it.
type PageHandle interface {
	// Viewport returns the page size in CSS pixels at the given scale.
	Viewport(scale float64) Size
	// Render draws the page into dst at the given device scale
	// (layout scale multiplied by the device pixel ratio).
	Render(ctx context.Context, dst *image.RGBA, scale float64) error
}

// EngineOpener parses raw document bytes into a RenderEngine.
type EngineOpener interface {
	Open(data []byte) (RenderEngine, error)
}

// DocumentService serves documents and page images to HTTP clients.
type DocumentService interface {
	OpenFile(ctx context.Context, documentID string) (io.ReadCloser, int64, error)
	PageCount(ctx context.Context, documentID string) (int, error)
	RenderPage(ctx context.Context, documentID string, page int) (*PageImage, error)
	RenderAllPages(ctx context.Context, documentID string) (*PageImageSet, error)
}

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
	GetDocumentsPath() string
	GetMaxFileSize() int64
	GetLogLevel() string
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetSupabaseBucket() string
	GetRenderDPI() float64
	GetRenderRateLimit() float64
	GetDocumentBaseURL() string
	GetViewportWidth() float64
	GetViewportHeight() float64
	GetDevicePixelRatio() float64
	GetResizeDebounce() time.Duration
	GetRescaleThreshold() float64
	GetPageGap() float64
}
