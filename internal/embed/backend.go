package embed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/categora/internal/logger"
	"github.com/ppiankov/categora/internal/score"
)

// ErrDisabled is the load error of a backend built without a loader
var ErrDisabled = errors.New("embedding backend disabled")

// Backend is the embedding capability shared by reconciliation and clustering
type Backend struct {
	load    Loader
	timeout time.Duration
	log     *logger.Logger

	once    sync.Once
	enc     Encoder
	loadErr error
}

// Option configures a Backend
type Option func(*Backend)

// WithTimeout bounds every Encode call
func WithTimeout(d time.Duration) Option {
	return func(b *Backend) { b.timeout = d }
}

// WithLogger attaches a logger
func WithLogger(l *logger.Logger) Option {
	return func(b *Backend) { b.log = l.With("component", "embed") }
}

// New creates a backend that will call load on first use. A nil loader
// yields a backend that is always unavailable.
func New(load Loader, opts ...Option) *Backend {
	b := &Backend{load: load, log: logger.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Unavailable returns a backend that never produces vectors
func Unavailable() *Backend {
	return New(nil)
}

// Static wraps an already constructed encoder
func Static(enc Encoder, opts ...Option) *Backend {
	return New(func(context.Context) (Encoder, error) { return enc, nil }, opts...)
}

func (b *Backend) ensure(ctx context.Context) Encoder {
	b.once.Do(func() {
		if b.load == nil {
			b.loadErr = ErrDisabled
			return
		}
		// the outcome is cached for the process, so one caller's
		// cancellation must not decide it
		loadCtx := context.WithoutCancel(ctx)
		if b.timeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, b.timeout)
			defer cancel()
		}
		enc, err := safeLoad(loadCtx, b.load)
		if err != nil {
			b.loadErr = err
			b.log.Warn("embedding backend unavailable", "error", err)
			return
		}
		if enc == nil {
			b.loadErr = ErrDisabled
			return
		}
		b.enc = enc
		b.log.Debug("embedding backend loaded", "model", enc.ModelID())
	})
	return b.enc
}

func safeLoad(ctx context.Context, load Loader) (enc Encoder, err error) {
	defer func() {
		if r := recover(); r != nil {
			enc, err = nil, fmt.Errorf("embedding loader panicked: %v", r)
		}
	}()
	return load(ctx)
}

// Available reports whether the backend can produce vectors, loading it if
// this is the first call.
func (b *Backend) Available(ctx context.Context) bool {
	return b.ensure(ctx) != nil
}

// LoadError returns why the backend is unavailable, or nil
func (b *Backend) LoadError() error {
	return b.loadErr
}

// ModelID names the loaded model, or "" when unavailable
func (b *Backend) ModelID(ctx context.Context) string {
	enc := b.ensure(ctx)
	if enc == nil {
		return ""
	}
	return enc.ModelID()
}

// Encode returns one unit vector per text. ok is false when the backend is
// unavailable or this call failed; failures of a single call do not disable
// the backend.
func (b *Backend) Encode(ctx context.Context, texts []string) (vectors [][]float32, ok bool) {
	enc := b.ensure(ctx)
	if enc == nil {
		return nil, false
	}
	if len(texts) == 0 {
		return [][]float32{}, true
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	raw, err := enc.Encode(ctx, texts)
	if err != nil {
		b.log.Warn("encode failed", "model", enc.ModelID(), "texts", len(texts), "error", err)
		return nil, false
	}
	if len(raw) != len(texts) {
		b.log.Warn("encoder returned wrong number of vectors", "want", len(texts), "got", len(raw))
		return nil, false
	}

	dim := -1
	out := make([][]float32, len(raw))
	for i, v := range raw {
		if len(v) == 0 || (dim >= 0 && len(v) != dim) {
			b.log.Warn("encoder returned inconsistent vector", "index", i, "dim", len(v))
			return nil, false
		}
		dim = len(v)
		cp := make([]float32, len(v))
		copy(cp, v)
		out[i] = score.Unit(cp)
	}
	return out, true
}

// Close releases the encoder if it holds native resources
func (b *Backend) Close() error {
	if b.enc == nil {
		return nil
	}
	if c, ok := b.enc.(closer); ok {
		return c.Close()
	}
	return nil
}
