package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEncoder calls an OpenAI-compatible /embeddings endpoint
type OpenAIEncoder struct {
	client   *openai.Client
	model    string
	endpoint string
	limiter  *Limiter
}

// OpenAIOptions configures the OpenAI encoder
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string // comma separated hosts that bypass the proxies
	Limiter    *Limiter
}

// NewOpenAIEncoder creates an encoder. An API key is required even for
// compatible servers that ignore it.
func NewOpenAIEncoder(opts OpenAIOptions) (*OpenAIEncoder, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if opts.Model == "" {
		opts.Model = string(openai.SmallEmbedding3)
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(0, 0)
	}

	clientConfig := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		clientConfig.BaseURL = opts.BaseURL
	}
	clientConfig.HTTPClient = newHTTPClient(opts.Timeout, opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy)

	return &OpenAIEncoder{
		client:   openai.NewClientWithConfig(clientConfig),
		model:    opts.Model,
		endpoint: clientConfig.BaseURL,
		limiter:  opts.Limiter,
	}, nil
}

func (e *OpenAIEncoder) ModelID() string {
	return "openai:" + e.model
}

func (e *OpenAIEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx, e.endpoint); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("OpenAI returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("OpenAI returned embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("OpenAI omitted embedding %d", i)
		}
	}
	return out, nil
}
