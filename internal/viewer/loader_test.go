package viewer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"pdf-viewer/internal/domain"
	apperrors "pdf-viewer/pkg/errors"
)

// newDocumentServer serves documents by identifier from the file endpoint.
func newDocumentServer(t *testing.T, docs map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/documents/"), "/file")
		body, ok := docs[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestLoader(baseURL string, maxSize int64) (*DocumentLoader, *mockOpener) {
	opener := &mockOpener{}
	loader := NewDocumentLoader(nil, opener, LoaderOptions{BaseURL: baseURL, MaxFileSize: maxSize}, newMockLogger())
	return loader, opener
}

func TestDocumentLoader_Load(t *testing.T) {
	srv := newDocumentServer(t, map[string]string{"report": "pages:3"})
	loader, _ := newTestLoader(srv.URL+"/", 0)

	var mu sync.Mutex
	var updates []domain.LoadProgress
	loader.OnProgress(func(p domain.LoadProgress) {
		mu.Lock()
		updates = append(updates, p)
		mu.Unlock()
	})

	if loader.State() != domain.LoadStatePending {
		t.Fatalf("expected pending state before loading, got %v", loader.State())
	}

	doc, err := loader.Load(context.Background(), "report")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if doc.PageCount() != 3 {
		t.Errorf("expected 3 pages, got %d", doc.PageCount())
	}
	if doc.ID != "report" || doc.LoadID == "" {
		t.Errorf("unexpected document identity: id=%q load_id=%q", doc.ID, doc.LoadID)
	}
	if loader.State() != domain.LoadStateReady {
		t.Errorf("expected ready state, got %v", loader.State())
	}
	if loader.Current() != doc || !loader.IsCurrent(doc) {
		t.Errorf("expected the loaded document to be current")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(updates) == 0 {
		t.Fatalf("expected progress updates")
	}
	last := updates[len(updates)-1]
	if last.Loaded != 7 || last.Total != 7 {
		t.Errorf("expected final progress 7/7, got %d/%d", last.Loaded, last.Total)
	}
	if pct, ok := last.Percent(); !ok || pct != 100 {
		t.Errorf("expected 100%%, got %d (%v)", pct, ok)
	}
}

func TestDocumentLoader_LoadErrors(t *testing.T) {
	srv := newDocumentServer(t, map[string]string{
		"broken": "not a document",
		"big":    "pages:12345",
	})

	tests := []struct {
		name      string
		id        string
		maxSize   int64
		wantType  apperrors.ErrorType
		wantCause error
		wantState domain.LoadState
	}{
		{name: "Missing identifier", id: "  ", wantType: apperrors.ErrorTypeNotFound, wantState: domain.LoadStatePending},
		{name: "Unknown document", id: "nope", wantType: apperrors.ErrorTypeLoad, wantCause: domain.ErrDocumentNotFound, wantState: domain.LoadStateFailed},
		{name: "Unparsable document", id: "broken", wantType: apperrors.ErrorTypeLoad, wantCause: domain.ErrInvalidFile, wantState: domain.LoadStateFailed},
		{name: "Document over size limit", id: "big", maxSize: 5, wantType: apperrors.ErrorTypeLoad, wantCause: domain.ErrFileTooLarge, wantState: domain.LoadStateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader, _ := newTestLoader(srv.URL, tt.maxSize)

			doc, err := loader.Load(context.Background(), tt.id)
			if err == nil {
				t.Fatalf("expected error, got document %v", doc)
			}
			if !apperrors.IsType(err, tt.wantType) {
				t.Errorf("expected %s error, got %v", tt.wantType, err)
			}
			if tt.wantCause != nil && !errors.Is(err, tt.wantCause) {
				t.Errorf("expected cause %v, got %v", tt.wantCause, err)
			}
			if loader.State() != tt.wantState {
				t.Errorf("expected state %v, got %v", tt.wantState, loader.State())
			}
			if loader.Current() != nil {
				t.Errorf("expected no current document")
			}
		})
	}
}

func TestDocumentLoader_LastLoadWins(t *testing.T) {
	release := make(chan struct{})
	requested := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/slow/") {
			requested <- struct{}{}
			select {
			case <-release:
			case <-r.Context().Done():
				return
			}
			_, _ = w.Write([]byte("pages:5"))
			return
		}
		_, _ = w.Write([]byte("pages:2"))
	}))
	defer srv.Close()
	defer close(release)

	loader, _ := newTestLoader(srv.URL, 0)

	type result struct {
		doc *Document
		err error
	}
	slow := make(chan result, 1)
	go func() {
		doc, err := loader.Load(context.Background(), "slow")
		slow <- result{doc, err}
	}()

	select {
	case <-requested:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the first request")
	}

	fast, err := loader.Load(context.Background(), "fast")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	var first result
	select {
	case first = <-slow:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the superseded load")
	}
	if !errors.Is(first.err, domain.ErrSuperseded) {
		t.Errorf("expected ErrSuperseded for the first load, got %v", first.err)
	}
	if first.doc != nil {
		t.Errorf("expected no document from the superseded load")
	}

	if loader.Current() != fast || fast.PageCount() != 2 {
		t.Errorf("expected the second document to be current")
	}
	if loader.State() != domain.LoadStateReady {
		t.Errorf("expected ready state, got %v", loader.State())
	}
}

func TestDocumentLoader_ReplacingClosesPreviousDocument(t *testing.T) {
	srv := newDocumentServer(t, map[string]string{"a": "pages:1", "b": "pages:2"})
	loader, opener := newTestLoader(srv.URL, 0)

	first, err := loader.Load(context.Background(), "a")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	firstEngine := opener.last()

	if _, err := loader.Load(context.Background(), "b"); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for !firstEngine.isClosed() {
		if time.Now().After(deadline) {
			t.Fatal("expected the replaced document to be closed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := first.Page(context.Background(), 1); !errors.Is(err, ErrDocumentClosed) {
		t.Errorf("expected ErrDocumentClosed from the replaced document, got %v", err)
	}

	if err := loader.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !opener.last().isClosed() || loader.Current() != nil {
		t.Errorf("expected Close to release the current document")
	}
}

func TestDocumentLoader_ProgressWithoutLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pages:"))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("1"))
	}))
	defer srv.Close()

	loader, _ := newTestLoader(srv.URL, 0)
	called := false
	loader.OnProgress(func(domain.LoadProgress) { called = true })

	if _, err := loader.Load(context.Background(), "streamed"); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if called {
		t.Errorf("expected no progress updates without a declared length")
	}
	if p := loader.Progress(); p.Loaded != 7 {
		t.Errorf("expected 7 bytes loaded, got %d", p.Loaded)
	}
}
