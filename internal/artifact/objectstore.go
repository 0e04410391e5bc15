package artifact

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/mediaintake/pkg/storage/objectstore"
)

// ObjectStoreRegistry uploads payloads to an object store and issues
// presigned GET URLs. Revoking a URL deletes the object, so the URL stops
// resolving even before it expires.
type ObjectStoreRegistry struct {
	store  objectstore.Client
	prefix string
	ttl    time.Duration

	mu   sync.Mutex
	keys map[string]string
}

// NewObjectStoreRegistry stores payloads under prefix with URLs valid for ttl.
func NewObjectStoreRegistry(store objectstore.Client, prefix string, ttl time.Duration) *ObjectStoreRegistry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ObjectStoreRegistry{store: store, prefix: prefix, ttl: ttl, keys: map[string]string{}}
}

func (o *ObjectStoreRegistry) Create(ctx context.Context, name, mimeType string, data []byte) (*Reference, error) {
	key := path.Join(o.prefix, time.Now().UTC().Format("2006/01/02"), uuid.NewString(), path.Base(name))
	err := o.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType, map[string]string{
		"original_filename": name,
	})
	if err != nil {
		return nil, fmt.Errorf("upload reference: %w", err)
	}

	url, err := o.store.PresignGet(ctx, key, o.ttl)
	if err != nil {
		_ = o.store.Remove(ctx, key)
		return nil, fmt.Errorf("presign reference: %w", err)
	}

	o.mu.Lock()
	o.keys[url] = key
	o.mu.Unlock()
	return NewReference(url, o), nil
}

func (o *ObjectStoreRegistry) Revoke(ctx context.Context, url string) error {
	o.mu.Lock()
	key, ok := o.keys[url]
	delete(o.keys, url)
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReference, url)
	}
	return o.store.Remove(ctx, key)
}
