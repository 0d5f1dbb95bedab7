package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func newFakeEmbeddingServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req EmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := EmbeddingResponse{Data: make([]EmbeddingData, len(req.Input))}
		for i, text := range req.Input {
			// Deterministic tiny vector derived from the text
			resp.Data[i] = EmbeddingData{
				Index:     i,
				Embedding: []float32{float32(len(text)), 1, 0},
			}
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_EmbedBatchAlignment(t *testing.T) {
	var calls atomic.Int64
	server := newFakeEmbeddingServer(t, &calls)
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))

	texts := []string{"a", "bb", "ccc"}
	vectors, err := client.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, text := range texts {
		if vectors[i][0] != float32(len(text)) {
			t.Errorf("vector %d not aligned with input %q", i, text)
		}
	}
}

func TestCachedProvider_SecondCallSkipsUpstream(t *testing.T) {
	var calls atomic.Int64
	server := newFakeEmbeddingServer(t, &calls)
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	provider := NewCachedProvider(client, NewMemoryCache())

	ctx := context.Background()
	first, err := provider.Embed(ctx, "payment terms clause")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	callsAfterFirst := calls.Load()
	if callsAfterFirst == 0 {
		t.Fatal("expected upstream call on cache miss")
	}

	second, err := provider.Embed(ctx, "payment terms clause")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if calls.Load() != callsAfterFirst {
		t.Error("expected cache hit to skip upstream call")
	}

	if len(first) != len(second) {
		t.Fatalf("cached vector length %d differs from original %d", len(second), len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("cached vector differs at index %d", i)
		}
	}
}

func TestMemoryCache_GetMulti(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "k1", []float32{1, 2}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	found, err := cache.GetMulti(ctx, []string{"k1", "k2"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(found) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(found))
	}
	if _, ok := found["k1"]; !ok {
		t.Error("expected k1 in results")
	}
}
