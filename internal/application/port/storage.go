package port

import (
	"context"
	"io"
)

// FileStorage abstracts where uploaded documents and generated files live
type FileStorage interface {
	// Save stores content under a generated reference and returns it
	Save(ctx context.Context, name string, content io.Reader) (ref string, err error)

	// Open returns a reader for a previously saved reference
	Open(ctx context.Context, ref string) (io.ReadCloser, error)

	// Path resolves a reference to a local filesystem path
	Path(ref string) string

	// Exists reports whether a reference resolves to stored content
	Exists(ctx context.Context, ref string) bool
}
