package ffmpeg

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// The shared engine is created on first use and reused for the life of the
// process. Concurrent first callers share one initialisation.
var (
	sharedMu     sync.Mutex
	sharedCfg    Config
	sharedEngine *Engine
	sharedInit   singleflight.Group
)

// Configure sets the configuration used by the next initialisation of the
// shared engine. It does not affect an engine that already exists.
func Configure(cfg Config) {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedCfg = cfg
}

// Shared returns the process-wide engine, initialising it on first call.
// A failed initialisation is not cached; the next call tries again.
func Shared(ctx context.Context) (*Engine, error) {
	sharedMu.Lock()
	if e := sharedEngine; e != nil {
		sharedMu.Unlock()
		return e, nil
	}
	cfg := sharedCfg
	sharedMu.Unlock()

	v, err, _ := sharedInit.Do("engine", func() (any, error) {
		sharedMu.Lock()
		if e := sharedEngine; e != nil {
			sharedMu.Unlock()
			return e, nil
		}
		sharedMu.Unlock()

		e, err := New(ctx, cfg)
		if err != nil {
			return nil, err
		}

		sharedMu.Lock()
		defer sharedMu.Unlock()
		sharedEngine = e
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Engine), nil
}

// Reset drops the shared engine and its configuration so the next Shared
// call initialises from scratch. Intended for tests and shutdown.
func Reset() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	sharedEngine = nil
	sharedCfg = Config{}
	sharedInit.Forget("engine")
}
