// internal/storage/archive/storage.go
package archive

import (
	"context"
	"mime"
	"path"
)

// Storage keeps run artifacts: report documents, downloaded candles and
// chart images. Paths are slash-separated and relative to the backend root.
type Storage interface {
	// Write stores data at the given path, replacing what was there
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves data from the given path
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if data exists at the given path
	Exists(ctx context.Context, path string) (bool, error)
}

// contentType guesses a MIME type from the path extension.
func contentType(p string) string {
	switch ext := path.Ext(p); ext {
	case ".csv":
		return "text/csv"
	case "":
		return "application/octet-stream"
	default:
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
		return "application/octet-stream"
	}
}
