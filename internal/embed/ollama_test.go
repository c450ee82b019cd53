package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOllamaEncoder_Encode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[]}`))
		case "/api/embed":
			var req ollamaEmbedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.Model != "all-minilm" {
				t.Errorf("model = %q", req.Model)
			}
			resp := ollamaEmbedResponse{Model: req.Model}
			for range req.Input {
				resp.Embeddings = append(resp.Embeddings, []float32{0.5, 0.5})
			}
			_ = json.NewEncoder(w).Encode(resp)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	enc, err := NewOllamaEncoder(OllamaOptions{BaseURL: server.URL + "/", Model: "all-minilm"})
	if err != nil {
		t.Fatalf("Failed to create encoder: %v", err)
	}
	ctx := context.Background()
	if err := enc.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	vecs, err := enc.Encode(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Errorf("got %d vectors", len(vecs))
	}
}

func TestOllamaEncoder_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ollamaError{Error: "model \"nope\" not found"})
	}))
	defer server.Close()

	enc, err := NewOllamaEncoder(OllamaOptions{BaseURL: server.URL, Model: "nope"})
	if err != nil {
		t.Fatalf("Failed to create encoder: %v", err)
	}
	_, err = enc.Encode(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
	if err := enc.Ping(context.Background()); err == nil {
		t.Error("Ping should fail on 404")
	}
}

func TestOllamaEncoder_RequiresModel(t *testing.T) {
	if _, err := NewOllamaEncoder(OllamaOptions{}); err == nil {
		t.Error("Expected error without model")
	}
}
