package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pdf-viewer/internal/domain"
	apperrors "pdf-viewer/pkg/errors"
)

const documentExt = ".pdf"

// validateDocumentID rejects identifiers that could escape the storage root.
func validateDocumentID(documentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return &domain.ValidationError{Field: "id", Message: "document identifier is required"}
	}
	if strings.ContainsAny(documentID, `/\`) || strings.Contains(documentID, "..") {
		return &domain.ValidationError{Field: "id", Message: "invalid document identifier"}
	}
	return nil
}

// LocalStorage serves documents from a directory as {id}.pdf.
type LocalStorage struct {
	root   string
	logger domain.Logger
}

// NewLocalStorage creates a filesystem-backed document storage
func NewLocalStorage(root string, logger domain.Logger) *LocalStorage {
	return &LocalStorage{root: root, logger: logger}
}

func (s *LocalStorage) Open(ctx context.Context, documentID string) (io.ReadCloser, int64, error) {
	if err := validateDocumentID(documentID); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	path := filepath.Join(s.root, documentID+documentExt)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, documentID)
		}
		return nil, 0, fmt.Errorf("failed to open document: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat document: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, documentID)
	}

	s.logger.Debug("Opened local document", "document_id", documentID, "size", info.Size())
	return f, info.Size(), nil
}

// SupabaseStorage serves documents from a Supabase Storage bucket as {id}.pdf.
type SupabaseStorage struct {
	client domain.SupabaseClient
	bucket string
	logger domain.Logger
}

// NewSupabaseStorage creates a bucket-backed document storage
func NewSupabaseStorage(client domain.SupabaseClient, bucket string, logger domain.Logger) *SupabaseStorage {
	return &SupabaseStorage{client: client, bucket: bucket, logger: logger}
}

func (s *SupabaseStorage) Open(ctx context.Context, documentID string) (io.ReadCloser, int64, error) {
	if err := validateDocumentID(documentID); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	data, err := s.client.Download(s.bucket, documentID+documentExt)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, 0, err
		}
		s.logger.Error("Storage download failed", err, "document_id", documentID, "bucket", s.bucket)
		return nil, 0, apperrors.NewNetworkError("document storage unavailable", err)
	}
	s.logger.Debug("Downloaded document from storage", "document_id", documentID, "bucket", s.bucket, "size", len(data))
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}
