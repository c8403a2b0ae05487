package internal

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ObjectStore is the content side of the dual-store split. Implementations
// must treat delete as idempotent: deleting a missing key is not an error
type ObjectStore interface {
	PutDocument(ctx context.Context, key, contentType string, data []byte) error
	FetchDocument(ctx context.Context, key string) ([]byte, error)
	DeleteDocument(ctx context.Context, key string) error
}

type Deps struct {
	DB *gorm.DB
	S3 ObjectStore

	// Now is the clock every expiry/tombstone decision reads. Injected so
	// tests can move time instead of sleeping
	Now func() time.Time
}

func (d *Deps) Clock() time.Time {
	if d.Now == nil {
		return time.Now()
	}

	return d.Now()
}
