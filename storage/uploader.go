package storage

import (
	"context"
	"io"
)

// FileUploader stores tournament archives in an object store and returns
// the public URL of the stored object.
type FileUploader interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
