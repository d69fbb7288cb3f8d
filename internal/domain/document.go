package domain

import "fmt"

// LoadState is the lifecycle state of a document handle.
type LoadState string

const (
	LoadStatePending LoadState = "pending"
	LoadStateLoading LoadState = "loading"
	LoadStateReady   LoadState = "ready"
	LoadStateFailed  LoadState = "failed"
)

// ToolMode is the active annotation tool.
type ToolMode string

const (
	ToolNone   ToolMode = "none"
	ToolPen    ToolMode = "pen"
	ToolEraser ToolMode = "eraser"
)

// Valid reports whether m is one of the known tool modes.
func (m ToolMode) Valid() bool {
	switch m {
	case ToolNone, ToolPen, ToolEraser:
		return true
	}
	return false
}

// Size is a width/height pair in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Validate checks that both dimensions are positive.
func (s Size) Validate() error {
	if s.Width <= 0 {
		return &ValidationError{Field: "width", Message: "width must be positive"}
	}
	if s.Height <= 0 {
		return &ValidationError{Field: "height", Message: "height must be positive"}
	}
	return nil
}

// LoadProgress reports bytes received for a document fetch.
type LoadProgress struct {
	Loaded int64 `json:"loaded"`
	Total  int64 `json:"total"`
}

// Percent returns the rounded completion percentage and false when the
// total size is unknown.
func (p LoadProgress) Percent() (int, bool) {
	if p.Total <= 0 {
		return 0, false
	}
	pct := int(float64(p.Loaded)/float64(p.Total)*100 + 0.5)
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

// PageImage is a single rasterized page returned by the document server.
type PageImage struct {
	PageNumber int    `json:"pageNumber"`
	Image      string `json:"image,omitempty"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	PNG        []byte `json:"-"`
}

// PageImageSet is the payload for the all-pages endpoint.
type PageImageSet struct {
	TotalPages int          `json:"totalPages"`
	Pages      []*PageImage `json:"pages"`
}

// ValidatePageNumber checks a 1-based page number against a page count.
func ValidatePageNumber(page, pageCount int) error {
	if page < 1 || page > pageCount {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, pageCount)
	}
	return nil
}
