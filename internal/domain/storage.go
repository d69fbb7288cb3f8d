package domain

import (
	"context"
	"io"
)

// DocumentStorage fetches stored document bytes by identifier. The returned
// size is -1 when the backend does not know it up front.
type DocumentStorage interface {
	Open(ctx context.Context, documentID string) (io.ReadCloser, int64, error)
}
