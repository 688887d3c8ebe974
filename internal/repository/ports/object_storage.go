package ports

import (
	"context"
	"io"
)

// ObjectStorage persists binary blobs (event posters) and returns a public
// URL for each stored object.
type ObjectStorage interface {
	Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error)
}
