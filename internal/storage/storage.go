package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// Store is the byte-storage abstraction behind report files. The server
// only ever talks to blobs through this interface; swapping the local
// disk implementation for a bucket-backed one is a constructor change.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// FileKey builds the storage key for an uploaded file: the upload instant
// in unix milliseconds plus the original file name with whitespace
// collapsed to underscores. Any directory components are stripped.
func FileKey(filename string, now time.Time) string {
	name := filepath.Base(strings.TrimSpace(filename))
	name = strings.Join(strings.Fields(name), "_")
	if name == "" || name == "." {
		name = "file"
	}
	return fmt.Sprintf("%d-%s", now.UnixMilli(), name)
}
