package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"pdf-viewer/internal/domain"

	"golang.org/x/sync/singleflight"
)

const pointsPerInch = 72.0

// DocumentService serves stored documents and rasterizes their pages.
type DocumentService struct {
	storage domain.DocumentStorage
	opener  domain.EngineOpener
	dpi     float64
	maxSize int64
	logger  domain.Logger

	// Concurrent renders of the same document share one storage fetch.
	fetches singleflight.Group
}

// NewDocumentService creates a new document service
func NewDocumentService(
	storage domain.DocumentStorage,
	opener domain.EngineOpener,
	dpi float64,
	maxSize int64,
	logger domain.Logger,
) *DocumentService {
	if dpi <= 0 {
		dpi = 150
	}
	return &DocumentService{
		storage: storage,
		opener:  opener,
		dpi:     dpi,
		maxSize: maxSize,
		logger:  logger,
	}
}

// OpenFile streams the raw document. The caller must close the reader.
func (s *DocumentService) OpenFile(ctx context.Context, documentID string) (io.ReadCloser, int64, error) {
	rc, size, err := s.storage.Open(ctx, documentID)
	if err != nil {
		return nil, 0, err
	}
	if s.maxSize > 0 && size > s.maxSize {
		rc.Close()
		return nil, 0, fmt.Errorf("%w: %d bytes", domain.ErrFileTooLarge, size)
	}
	return rc, size, nil
}

// PageCount returns the number of pages in the document.
func (s *DocumentService) PageCount(ctx context.Context, documentID string) (int, error) {
	engine, err := s.openEngine(ctx, documentID)
	if err != nil {
		return 0, err
	}
	defer engine.Close()
	return engine.NumPages(), nil
}

// RenderPage rasterizes one 1-based page to PNG.
func (s *DocumentService) RenderPage(ctx context.Context, documentID string, page int) (*domain.PageImage, error) {
	engine, err := s.openEngine(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	if err := domain.ValidatePageNumber(page, engine.NumPages()); err != nil {
		return nil, err
	}
	return s.renderPNG(ctx, engine, page)
}

// RenderAllPages rasterizes every page in order and returns them as data URIs.
func (s *DocumentService) RenderAllPages(ctx context.Context, documentID string) (*domain.PageImageSet, error) {
	engine, err := s.openEngine(ctx, documentID)
	if err != nil {
		return nil, err
	}
	defer engine.Close()

	n := engine.NumPages()
	set := &domain.PageImageSet{TotalPages: n, Pages: make([]*domain.PageImage, 0, n)}
	for i := 1; i <= n; i++ {
		img, err := s.renderPNG(ctx, engine, i)
		if err != nil {
			return nil, err
		}
		img.Image = "data:image/png;base64," + base64.StdEncoding.EncodeToString(img.PNG)
		set.Pages = append(set.Pages, img)
	}

	s.logger.Info("Rendered all pages", "document_id", documentID, "pages", n, "dpi", s.dpi)
	return set, nil
}

func (s *DocumentService) renderPNG(ctx context.Context, engine domain.RenderEngine, page int) (*domain.PageImage, error) {
	handle, err := engine.Page(ctx, page)
	if err != nil {
		return nil, err
	}
	scale := s.dpi / pointsPerInch
	size := handle.Viewport(scale)
	w := int(math.Max(1, math.Round(size.Width)))
	h := int(math.Max(1, math.Round(size.Height)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if err := handle.Render(ctx, dst, scale); err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", page, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("failed to encode page %d: %w", page, err)
	}
	return &domain.PageImage{PageNumber: page, Width: w, Height: h, PNG: buf.Bytes()}, nil
}

func (s *DocumentService) openEngine(ctx context.Context, documentID string) (domain.RenderEngine, error) {
	data, err := s.fetch(ctx, documentID)
	if err != nil {
		return nil, err
	}
	engine, err := s.opener.Open(data)
	if err != nil {
		s.logger.Error("Failed to open document", err, "document_id", documentID)
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidFile, err)
	}
	return engine, nil
}

func (s *DocumentService) fetch(ctx context.Context, documentID string) ([]byte, error) {
	// The fetch outlives the caller that started it; other callers may share it.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := s.fetches.Do(documentID, func() (interface{}, error) {
		rc, _, err := s.OpenFile(fetchCtx, documentID)
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		r := io.Reader(rc)
		if s.maxSize > 0 {
			r = io.LimitReader(rc, s.maxSize+1)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read document: %w", err)
		}
		if s.maxSize > 0 && int64(len(data)) > s.maxSize {
			return nil, domain.ErrFileTooLarge
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Shared document fetch", "document_id", documentID)
	}
	return v.([]byte), nil
}
