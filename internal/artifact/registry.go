package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownReference is returned when a URL was never issued or has been revoked.
var ErrUnknownReference = errors.New("unknown reference")

// Registry issues reference URLs for payloads. A URL stays valid until it
// is revoked; the pipeline never revokes the URLs it creates, that is up to
// whoever receives the results.
type Registry interface {
	Create(ctx context.Context, name, mimeType string, data []byte) (*Reference, error)
	Revoke(ctx context.Context, url string) error
}

// Reference is a revocable URL for one payload.
type Reference struct {
	URL      string
	registry Registry
	once     sync.Once
	err      error
}

// NewReference ties url to the registry that can revoke it.
func NewReference(url string, registry Registry) *Reference {
	return &Reference{URL: url, registry: registry}
}

// Revoke releases the URL. Calling it more than once is harmless.
func (r *Reference) Revoke(ctx context.Context) error {
	if r == nil {
		return nil
	}
	r.once.Do(func() {
		r.err = r.registry.Revoke(ctx, r.URL)
	})
	return r.err
}

// MemoryURLPrefix starts every URL issued by a MemoryRegistry. The URL is
// opaque outside the process; the HTTP surface serves the id after the
// prefix under /refs/{id}.
const MemoryURLPrefix = "blob:mediaintake/"

type memoryEntry struct {
	name      string
	mimeType  string
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryRegistry keeps payloads in process memory, the equivalent of a
// browser's object URLs. With a TTL, entries stop resolving once they
// expire and are dropped by the next sweep.
type MemoryRegistry struct {
	mu        sync.RWMutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryRegistry creates an empty registry whose URLs live until revoked.
func NewMemoryRegistry() *MemoryRegistry {
	return NewExpiringMemoryRegistry(0)
}

// NewExpiringMemoryRegistry creates an empty registry whose URLs expire
// after ttl. A ttl of zero or less disables expiry.
func NewExpiringMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{entries: map[string]memoryEntry{}, ttl: max(ttl, 0), now: time.Now}
}

func (m *MemoryRegistry) Create(_ context.Context, name, mimeType string, data []byte) (*Reference, error) {
	id := uuid.NewString()
	m.mu.Lock()
	now := m.now()
	m.sweepLocked(now)
	e := memoryEntry{name: name, mimeType: mimeType, data: data}
	if m.ttl > 0 {
		e.expiresAt = now.Add(m.ttl)
	}
	m.entries[id] = e
	m.mu.Unlock()
	return NewReference(MemoryURLPrefix+id, m), nil
}

func (m *MemoryRegistry) Revoke(_ context.Context, url string) error {
	id, ok := strings.CutPrefix(url, MemoryURLPrefix)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReference, url)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownReference, url)
	}
	delete(m.entries, id)
	if e.expired(m.now()) {
		return fmt.Errorf("%w: %s", ErrUnknownReference, url)
	}
	return nil
}

// Lookup returns the payload behind an id or a full URL. Expired entries
// are not found.
func (m *MemoryRegistry) Lookup(idOrURL string) (name, mimeType string, data []byte, ok bool) {
	id := strings.TrimPrefix(idOrURL, MemoryURLPrefix)
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok || e.expired(m.now()) {
		return "", "", nil, false
	}
	return e.name, e.mimeType, e.data, true
}

// Len reports how many URLs are live. It sweeps expired entries first.
func (m *MemoryRegistry) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSweep = time.Time{}
	m.sweepLocked(m.now())
	return len(m.entries)
}

// sweepLocked drops expired entries, at most once per ttl. m.mu must be held.
func (m *MemoryRegistry) sweepLocked(now time.Time) {
	if m.ttl <= 0 || now.Sub(m.lastSweep) < m.ttl {
		return
	}
	m.lastSweep = now
	for id, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, id)
		}
	}
}

// MemoryID returns the id inside a URL issued by a MemoryRegistry.
func MemoryID(url string) (string, bool) {
	return strings.CutPrefix(url, MemoryURLPrefix)
}
