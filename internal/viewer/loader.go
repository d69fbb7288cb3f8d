package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"pdf-viewer/internal/domain"
	apperrors "pdf-viewer/pkg/errors"

	"github.com/google/uuid"
)

// ErrDocumentClosed is returned when a page of a replaced document is requested.
var ErrDocumentClosed = errors.New("document closed")

// Document is the handle of a loaded document. Page access is safe for
// concurrent use and waits for in-flight renders when the document is closed.
type Document struct {
	ID     string
	LoadID string

	mu        sync.RWMutex
	engine    domain.RenderEngine
	pageCount int
	closed    bool
}

func newDocument(id string, engine domain.RenderEngine) *Document {
	return &Document{
		ID:        id,
		LoadID:    uuid.NewString(),
		engine:    engine,
		pageCount: engine.NumPages(),
	}
}

// PageCount returns the number of pages
func (d *Document) PageCount() int {
	return d.pageCount
}

// Page returns a handle for a 1-based page index.
func (d *Document) Page(ctx context.Context, index int) (domain.PageHandle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrDocumentClosed
	}
	page, err := d.engine.Page(ctx, index)
	if err != nil {
		return nil, err
	}
	return &guardedPage{doc: d, page: page}, nil
}

// Close releases the render engine.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.engine.Close()
}

type guardedPage struct {
	doc  *Document
	page domain.PageHandle
}

func (p *guardedPage) Viewport(scale float64) domain.Size {
	return p.page.Viewport(scale)
}

func (p *guardedPage) Render(ctx context.Context, dst *image.RGBA, scale float64) error {
	p.doc.mu.RLock()
	defer p.doc.mu.RUnlock()
	if p.doc.closed {
		return ErrDocumentClosed
	}
	return p.page.Render(ctx, dst, scale)
}

// LoaderOptions configures where documents are fetched from.
type LoaderOptions struct {
	BaseURL     string
	MaxFileSize int64
}

// DocumentLoader fetches documents from the document server and opens them
// with the render engine. The most recent Load call wins: earlier loads still
// in flight are cancelled and never update the loader's state.
type DocumentLoader struct {
	client *http.Client
	opener domain.EngineOpener
	opts   LoaderOptions
	logger domain.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	state      domain.LoadState
	progress   domain.LoadProgress
	current    *Document
	onProgress func(domain.LoadProgress)
}

// NewDocumentLoader creates a new document loader
func NewDocumentLoader(client *http.Client, opener domain.EngineOpener, opts LoaderOptions, logger domain.Logger) *DocumentLoader {
	if client == nil {
		client = http.DefaultClient
	}
	return &DocumentLoader{
		client: client,
		opener: opener,
		opts:   opts,
		logger: logger,
		state:  domain.LoadStatePending,
	}
}

// OnProgress registers an observer for byte progress. It is only called when
// the response declares its total size.
func (l *DocumentLoader) OnProgress(fn func(domain.LoadProgress)) {
	l.mu.Lock()
	l.onProgress = fn
	l.mu.Unlock()
}

// Load fetches and opens the document with the given identifier.
func (l *DocumentLoader) Load(ctx context.Context, documentID string) (*Document, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, apperrors.NewNotFoundError("document identifier missing")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	l.generation++
	gen := l.generation
	if l.cancel != nil {
		l.cancel()
	}
	l.cancel = cancel
	old := l.current
	l.current = nil
	l.state = domain.LoadStateLoading
	l.progress = domain.LoadProgress{}
	l.mu.Unlock()

	if old != nil {
		// Close waits for renders of the old document still in flight.
		go func() {
			if err := old.Close(); err != nil {
				l.logger.Warn("Failed to close replaced document", "document_id", old.ID, "error", err)
			}
		}()
	}

	l.logger.Info("Loading document", "document_id", documentID)

	data, err := l.fetch(ctx, gen, documentID)
	if err != nil {
		return nil, l.fail(gen, documentID, err)
	}

	engine, err := l.opener.Open(data)
	if err != nil {
		return nil, l.fail(gen, documentID, apperrors.NewLoadError("failed to parse document", err))
	}
	doc := newDocument(documentID, engine)

	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		_ = doc.Close()
		l.logger.Debug("Discarding superseded load", "document_id", documentID)
		return nil, domain.ErrSuperseded
	}
	l.current = doc
	l.state = domain.LoadStateReady
	l.mu.Unlock()

	l.logger.Info("Document loaded", "document_id", documentID, "load_id", doc.LoadID, "pages", doc.PageCount(), "bytes", len(data))
	return doc, nil
}

func (l *DocumentLoader) fail(gen uint64, documentID string, err error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return domain.ErrSuperseded
	}
	l.state = domain.LoadStateFailed
	l.logger.Error("Document load failed", err, "document_id", documentID)
	return err
}

func (l *DocumentLoader) fetch(ctx context.Context, gen uint64, documentID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/api/v1/documents/%s/file", strings.TrimRight(l.opts.BaseURL, "/"), url.PathEscape(documentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewLoadError("failed to build document request", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, apperrors.NewLoadError("failed to fetch document", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperrors.NewLoadError("failed to fetch document", domain.ErrDocumentNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewLoadError("failed to fetch document", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	maxSize := l.opts.MaxFileSize
	total := resp.ContentLength
	if maxSize > 0 && total > maxSize {
		return nil, apperrors.NewLoadError("failed to fetch document", domain.ErrFileTooLarge)
	}

	var body io.Reader = &progressReader{
		r:     resp.Body,
		total: total,
		report: func(p domain.LoadProgress) {
			l.reportProgress(gen, p)
		},
	}
	if maxSize > 0 {
		body = io.LimitReader(body, maxSize+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, apperrors.NewLoadError("failed to read document", err)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		return nil, apperrors.NewLoadError("failed to fetch document", domain.ErrFileTooLarge)
	}
	return data, nil
}

func (l *DocumentLoader) reportProgress(gen uint64, p domain.LoadProgress) {
	l.mu.Lock()
	if gen != l.generation {
		l.mu.Unlock()
		return
	}
	l.progress = p
	fn := l.onProgress
	l.mu.Unlock()

	if fn != nil && p.Total > 0 {
		fn(p)
	}
}

// State returns the state of the most recent load.
func (l *DocumentLoader) State() domain.LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Progress returns the byte progress of the most recent load.
func (l *DocumentLoader) Progress() domain.LoadProgress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.progress
}

// Current returns the loaded document, or nil while loading or after a failure.
func (l *DocumentLoader) Current() *Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// IsCurrent reports whether doc is the loader's current document.
func (l *DocumentLoader) IsCurrent(doc *Document) bool {
	return doc != nil && l.Current() == doc
}

// Close cancels any in-flight load and releases the current document.
func (l *DocumentLoader) Close() error {
	l.mu.Lock()
	l.generation++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	doc := l.current
	l.current = nil
	l.mu.Unlock()

	if doc != nil {
		return doc.Close()
	}
	return nil
}

// progressReader reports cumulative bytes read after every read.
type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	report func(domain.LoadProgress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.report(domain.LoadProgress{Loaded: p.loaded, Total: p.total})
	}
	return n, err
}
