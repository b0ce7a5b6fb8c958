package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"recipe-rag/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbeddingServer 回傳向量 [len(text), index]，並以反序回傳 data 以驗證依 index 放回
func fakeEmbeddingServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, item{Index: i, Embedding: []float32{float32(len(req.Input[i])), float32(i)}})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	}))
}

func TestHTTPEmbedder_EncodeBatchesPreserveOrder(t *testing.T) {
	var calls int32
	srv := fakeEmbeddingServer(t, &calls)
	defer srv.Close()

	e := NewHTTPEmbedder(config.EmbeddingConfig{
		BaseURL:     srv.URL,
		APIKey:      "secret",
		Model:       "test-model",
		BatchSize:   2,
		Concurrency: 3,
	})

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.Encode(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))

	for i, v := range vecs {
		assert.Equal(t, float32(len(texts[i])), v.Slice()[0], "vector %d out of order", i)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, e.Dimensions(), "dimensions discovered from first response")
	assert.Equal(t, "test-model", e.Model())
}

func TestHTTPEmbedder_EncodeOne(t *testing.T) {
	var calls int32
	srv := fakeEmbeddingServer(t, &calls)
	defer srv.Close()

	e := NewHTTPEmbedder(config.EmbeddingConfig{BaseURL: srv.URL, APIKey: "secret", Model: "test-model", Dimensions: 2})
	v, err := e.EncodeOne(context.Background(), "tahu")
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 0}, v.Slice())
}

func TestHTTPEmbedder_DimensionMismatch(t *testing.T) {
	var calls int32
	srv := fakeEmbeddingServer(t, &calls)
	defer srv.Close()

	e := NewHTTPEmbedder(config.EmbeddingConfig{BaseURL: srv.URL, APIKey: "secret", Model: "test-model", Dimensions: 384})
	_, err := e.Encode(context.Background(), []string{"ayam"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestHTTPEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewHTTPEmbedder(config.EmbeddingConfig{BaseURL: srv.URL, Model: "m"})
	_, err := e.Encode(context.Background(), []string{"ayam"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPEmbedder_EmptyInput(t *testing.T) {
	e := NewHTTPEmbedder(config.EmbeddingConfig{BaseURL: "http://127.0.0.1:0", Model: "m"})
	vecs, err := e.Encode(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
}

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a, err := e.EncodeOne(ctx, "Masakan: Ayam Goreng Bahan: ayam bawang")
	require.NoError(t, err)
	b, err := e.EncodeOne(ctx, "Masakan: Ayam Goreng Bahan: ayam bawang")
	require.NoError(t, err)

	assert.Equal(t, a.Slice(), b.Slice())
	assert.Len(t, a.Slice(), 64)
	assert.Equal(t, 64, e.Dimensions())
	assert.Equal(t, "hash-64", e.Model())

	var norm float32
	for _, x := range a.Slice() {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-4)
}

func TestHashEmbedder_SimilarTextsAreCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	vecs, err := e.Encode(context.Background(), []string{
		"ayam tahu",
		"Masakan: Tahu Ayam Kecap Bahan: ayam tahu kecap",
		"Masakan: Kue Cubit Bahan: tepung terigu gula telur",
	})
	require.NoError(t, err)

	near := sqDist(vecs[0].Slice(), vecs[1].Slice())
	far := sqDist(vecs[0].Slice(), vecs[2].Slice())
	assert.Less(t, near, far)
}

func TestHashEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	v, err := NewHashEmbedder(8).EncodeOne(context.Background(), "  ,, ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), v.Slice())
}

func TestHashEmbedder_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHashEmbedder(8).Encode(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Provider: "hash", Dimensions: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimensions())

	e, err = New(config.EmbeddingConfig{Provider: "http", BaseURL: "http://localhost", Model: "m", Dimensions: 384})
	require.NoError(t, err)
	assert.IsType(t, &HTTPEmbedder{}, e)

	_, err = New(config.EmbeddingConfig{Provider: "faiss"})
	assert.Error(t, err)
}

func sqDist(a, b []float32) float32 {
	var d float32
	for i := range a {
		x := a[i] - b[i]
		d += x * x
	}
	return d
}
