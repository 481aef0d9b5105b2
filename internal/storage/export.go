package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gogotex/gogotex/backend/userstore/internal/user"
	"github.com/gogotex/gogotex/backend/userstore/pkg/logger"
)

const ndjsonContentType = "application/x-ndjson"

// ObjectStore is the part of MinIOStorage the exporter needs.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Snapshot describes one uploaded export.
type Snapshot struct {
	Key   string `json:"key"`
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// Exporter writes users as newline-delimited JSON objects.
type Exporter struct {
	store  ObjectStore
	prefix string
	expiry time.Duration
	now    func() time.Time
}

func NewExporter(store ObjectStore) *Exporter {
	return &Exporter{store: store, prefix: "snapshots/users", expiry: time.Hour, now: time.Now}
}

// Export uploads users under a timestamped key and returns a link to it.
func (e *Exporter) Export(ctx context.Context, users []*user.User) (*Snapshot, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, u := range users {
		if err := enc.Encode(u); err != nil {
			return nil, fmt.Errorf("encode user %s: %w", u.ID, err)
		}
	}
	key := fmt.Sprintf("%s-%s.ndjson", e.prefix, e.now().UTC().Format("20060102T150405.000000000Z"))
	if err := e.store.UploadFile(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), ndjsonContentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}
	link, err := e.store.GetPresignedURL(ctx, key, e.expiry)
	if err != nil {
		return nil, fmt.Errorf("presign %s: %w", key, err)
	}
	logger.Infof("exported %d users to %s", len(users), key)
	return &Snapshot{Key: key, URL: link, Count: len(users)}, nil
}
