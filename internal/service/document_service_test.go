package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"pdf-viewer/internal/domain"
)

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) record(line string) {
	m.mu.Lock()
	m.messages = append(m.messages, line)
	m.mu.Unlock()
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.record("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	m.record("ERROR: " + msg + " - " + err.Error())
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.record("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.record("WARN: " + msg)
}

// MockDocumentStorage serves documents from memory.
type MockDocumentStorage struct {
	mu    sync.Mutex
	docs  map[string]string
	opens int
	// gate, when set, blocks every Open until it is closed.
	gate    chan struct{}
	entered chan struct{}
}

func NewMockDocumentStorage(docs map[string]string) *MockDocumentStorage {
	return &MockDocumentStorage{docs: docs}
}

func (m *MockDocumentStorage) Open(ctx context.Context, documentID string) (io.ReadCloser, int64, error) {
	m.mu.Lock()
	m.opens++
	body, ok := m.docs[documentID]
	gate, entered := m.gate, m.entered
	m.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		}
	}
	if !ok {
		return nil, 0, domain.ErrDocumentNotFound
	}
	return io.NopCloser(strings.NewReader(body)), int64(len(body)), nil
}

func (m *MockDocumentStorage) openCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens
}

var mockInk = color.RGBA{R: 200, G: 100, B: 50, A: 255}

// MockEngineOpener parses documents of the form "pages:N" with US Letter pages.
type MockEngineOpener struct{}

func (MockEngineOpener) Open(data []byte) (domain.RenderEngine, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(string(data), "pages:"))
	if err != nil || !strings.HasPrefix(string(data), "pages:") {
		return nil, domain.ErrInvalidFile
	}
	return &mockEngine{pages: n}, nil
}

type mockEngine struct {
	pages int
}

func (e *mockEngine) NumPages() int { return e.pages }

func (e *mockEngine) Page(ctx context.Context, index int) (domain.PageHandle, error) {
	if err := domain.ValidatePageNumber(index, e.pages); err != nil {
		return nil, err
	}
	return mockPage{}, nil
}

func (e *mockEngine) Close() error { return nil }

type mockPage struct{}

func (mockPage) Viewport(scale float64) domain.Size {
	return domain.Size{Width: 612 * scale, Height: 792 * scale}
}

func (mockPage) Render(ctx context.Context, dst *image.RGBA, scale float64) error {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(mockInk), image.Point{}, draw.Src)
	return nil
}

func newTestDocumentService(docs map[string]string, maxSize int64) (*DocumentService, *MockDocumentStorage) {
	storage := NewMockDocumentStorage(docs)
	// 36 DPI is half a point per pixel: 306x396 pages.
	return NewDocumentService(storage, MockEngineOpener{}, 36, maxSize, NewMockLogger()), storage
}

func TestDocumentService_PageCount(t *testing.T) {
	service, _ := newTestDocumentService(map[string]string{"three": "pages:3", "bad": "%PDF-broken"}, 0)

	count, err := service.PageCount(context.Background(), "three")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 pages, got %d", count)
	}

	if _, err := service.PageCount(context.Background(), "missing"); !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Errorf("Expected ErrDocumentNotFound, got %v", err)
	}
	if _, err := service.PageCount(context.Background(), "bad"); !errors.Is(err, domain.ErrInvalidFile) {
		t.Errorf("Expected ErrInvalidFile, got %v", err)
	}
}

func TestDocumentService_RenderPage(t *testing.T) {
	service, _ := newTestDocumentService(map[string]string{"two": "pages:2"}, 0)

	img, err := service.RenderPage(context.Background(), "two", 2)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if img.PageNumber != 2 || img.Width != 306 || img.Height != 396 {
		t.Errorf("Unexpected page image: page=%d %dx%d", img.PageNumber, img.Width, img.Height)
	}

	decoded, err := png.Decode(bytes.NewReader(img.PNG))
	if err != nil {
		t.Fatalf("Expected a valid PNG, got %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 306 || b.Dy() != 396 {
		t.Errorf("Expected 306x396 PNG, got %v", b)
	}
	r, g, b, a := decoded.At(10, 10).RGBA()
	if uint8(r>>8) != mockInk.R || uint8(g>>8) != mockInk.G || uint8(b>>8) != mockInk.B || uint8(a>>8) != 255 {
		t.Errorf("Expected rendered page colour, got %v", decoded.At(10, 10))
	}

	for _, page := range []int{0, 3} {
		if _, err := service.RenderPage(context.Background(), "two", page); !errors.Is(err, domain.ErrPageOutOfRange) {
			t.Errorf("page %d: Expected ErrPageOutOfRange, got %v", page, err)
		}
	}
}

func TestDocumentService_RenderAllPages(t *testing.T) {
	service, _ := newTestDocumentService(map[string]string{"three": "pages:3"}, 0)

	set, err := service.RenderAllPages(context.Background(), "three")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if set.TotalPages != 3 || len(set.Pages) != 3 {
		t.Fatalf("Expected 3 pages, got total=%d len=%d", set.TotalPages, len(set.Pages))
	}
	for i, p := range set.Pages {
		if p.PageNumber != i+1 {
			t.Errorf("Expected page %d in position %d, got %d", i+1, i, p.PageNumber)
		}
		if !strings.HasPrefix(p.Image, "data:image/png;base64,") {
			t.Errorf("Expected PNG data URI for page %d", p.PageNumber)
		}
	}
}

func TestDocumentService_MaxFileSize(t *testing.T) {
	service, _ := newTestDocumentService(map[string]string{"big": "pages:100000"}, 8)

	if _, _, err := service.OpenFile(context.Background(), "big"); !errors.Is(err, domain.ErrFileTooLarge) {
		t.Errorf("Expected ErrFileTooLarge from OpenFile, got %v", err)
	}
	if _, err := service.PageCount(context.Background(), "big"); !errors.Is(err, domain.ErrFileTooLarge) {
		t.Errorf("Expected ErrFileTooLarge from PageCount, got %v", err)
	}
}

func TestDocumentService_ConcurrentRendersShareFetch(t *testing.T) {
	service, storage := newTestDocumentService(map[string]string{"two": "pages:2"}, 0)
	storage.gate = make(chan struct{})
	storage.entered = make(chan struct{}, 1)

	const callers = 4
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.PageCount(context.Background(), "two"); err != nil {
				errs <- err
			}
		}()
	}

	select {
	case <-storage.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the storage fetch")
	}
	// Give the remaining callers time to join the in-flight fetch.
	time.Sleep(100 * time.Millisecond)
	close(storage.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Expected no error, got %v", err)
	}
	if n := storage.openCount(); n != 1 {
		t.Errorf("Expected one shared storage fetch, got %d", n)
	}
}

func TestDocumentService_SharedFetchSurvivesCallerCancel(t *testing.T) {
	service, storage := newTestDocumentService(map[string]string{"two": "pages:2"}, 0)
	storage.gate = make(chan struct{})
	storage.entered = make(chan struct{}, 1)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	defer cancelFirst()
	firstDone := make(chan error, 1)
	go func() {
		_, err := service.PageCount(firstCtx, "two")
		firstDone <- err
	}()

	select {
	case <-storage.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the storage fetch")
	}

	secondDone := make(chan error, 1)
	var second int
	go func() {
		n, err := service.PageCount(context.Background(), "two")
		second = n
		secondDone <- err
	}()
	// Let the second caller join the in-flight fetch, then drop the first.
	time.Sleep(100 * time.Millisecond)
	cancelFirst()
	time.Sleep(50 * time.Millisecond)
	close(storage.gate)

	if err := <-secondDone; err != nil {
		t.Fatalf("Expected the joined caller to succeed, got %v", err)
	}
	if second != 2 {
		t.Errorf("Expected 2 pages, got %d", second)
	}
	<-firstDone
	if n := storage.openCount(); n != 1 {
		t.Errorf("Expected one shared storage fetch, got %d", n)
	}
}
