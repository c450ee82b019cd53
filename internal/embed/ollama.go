package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaEncoder calls a local Ollama server's /api/embed endpoint
type OllamaEncoder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *Limiter
}

// OllamaOptions configures the Ollama encoder
type OllamaOptions struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string // comma separated hosts that bypass the proxies
	Limiter    *Limiter
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaError struct {
	Error string `json:"error"`
}

// NewOllamaEncoder creates an encoder
func NewOllamaEncoder(opts OllamaOptions) (*OllamaEncoder, error) {
	if opts.Model == "" {
		return nil, fmt.Errorf("ollama model must be specified (e.g., all-minilm, nomic-embed-text)")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = NewLimiter(0, 0)
	}
	return &OllamaEncoder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      opts.Model,
		httpClient: newHTTPClient(timeout, opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
		limiter:    opts.Limiter,
	}, nil
}

func (e *OllamaEncoder) ModelID() string {
	return "ollama:" + e.model
}

// Ping checks that the server is reachable
func (e *OllamaEncoder) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", e.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, e.baseURL)
	}
	return nil
}

func (e *OllamaEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx, e.baseURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr ollamaError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("ollama error (HTTP %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("ollama HTTP %d", resp.StatusCode)
	}

	var out ollamaEmbedResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}
