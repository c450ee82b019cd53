// Package embed provides the optional sentence-embedding capability.
//
// A Backend is built once at startup from a Loader and handed to every
// component that needs vectors. Loading is lazy and happens at most once;
// a failed load leaves the backend permanently unavailable. Callers never
// see encoder errors: they get ok=false and fall back.
package embed

import "context"

// Encoder turns texts into vectors, one per input, in input order
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
}

// Loader performs the expensive part of building an Encoder
type Loader func(ctx context.Context) (Encoder, error)

type funcEncoder struct {
	id string
	fn func(ctx context.Context, texts []string) ([][]float32, error)
}

// EncoderFunc adapts a plain function into an Encoder
func EncoderFunc(modelID string, fn func(ctx context.Context, texts []string) ([][]float32, error)) Encoder {
	return &funcEncoder{id: modelID, fn: fn}
}

func (f *funcEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	return f.fn(ctx, texts)
}

func (f *funcEncoder) ModelID() string {
	return f.id
}

type closer interface {
	Close() error
}
