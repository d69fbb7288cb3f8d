// Package handler provides HTTP handlers for the API.
package handler

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"pdf-viewer/internal/domain"

	"github.com/gorilla/mux"
)

// DocumentHandler serves document files and rendered page images
type DocumentHandler struct {
	documentService domain.DocumentService
	logger          domain.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService domain.DocumentService, logger domain.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          logger,
	}
}

// GetFile streams the raw PDF
func (h *DocumentHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	rc, size, err := h.documentService.OpenFile(r.Context(), documentID)
	if err != nil {
		h.fail(w, r, "Failed to open document", err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	disposition := mime.FormatMediaType("inline", map[string]string{"filename": documentID + ".pdf"})
	if disposition == "" {
		disposition = "inline"
	}
	w.Header().Set("Content-Disposition", disposition)
	if size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("Document stream interrupted", "document_id", documentID, "error", err)
	}
}

// GetPages returns the page count, or a single page as PNG when the page
// query parameter is present.
func (h *DocumentHandler) GetPages(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		img, err := h.documentService.RenderPage(r.Context(), documentID, page)
		if err != nil {
			h.fail(w, r, "Failed to render page", err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Content-Length", strconv.Itoa(len(img.PNG)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(img.PNG)
		return
	}

	count, err := h.documentService.PageCount(r.Context(), documentID)
	if err != nil {
		h.fail(w, r, "Failed to count pages", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"totalPages": count})
}

// GetAllPages renders every page and returns them as base64 data URIs
func (h *DocumentHandler) GetAllPages(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	set, err := h.documentService.RenderAllPages(r.Context(), documentID)
	if err != nil {
		h.fail(w, r, "Failed to render pages", err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (h *DocumentHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status, message := statusForError(err)
	requestID, _ := GetRequestIDFromContext(r)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, err, "document_id", mux.Vars(r)["id"], "request_id", requestID)
	} else {
		h.logger.Debug(msg, "document_id", mux.Vars(r)["id"], "status", status, "error", err)
	}
	writeError(w, status, message)
}
