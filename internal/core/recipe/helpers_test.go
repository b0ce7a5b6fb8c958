package recipe

import (
	"context"
	"testing"

	"recipe-rag/internal/core/corpus"
	"recipe-rag/internal/core/index"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 以固定對照表回傳向量，未知文字回傳零向量
type fakeEmbedder struct {
	dims    int
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Encode(ctx context.Context, texts []string) ([]pgvector.Vector, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]pgvector.Vector, len(texts))
	for i, text := range texts {
		v, ok := f.vectors[text]
		if !ok {
			v = make([]float32, f.dims)
		}
		out[i] = pgvector.NewVector(v)
	}
	return out, nil
}

func (f *fakeEmbedder) EncodeOne(ctx context.Context, text string) (pgvector.Vector, error) {
	vecs, err := f.Encode(ctx, []string{text})
	if err != nil {
		return pgvector.Vector{}, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }
func (f *fakeEmbedder) Model() string   { return "fake" }

// lineResources 第 i 筆食譜的向量為 [i]，查詢向量由 queries 指定
func lineResources(t *testing.T, records []corpus.Record, queries map[string]float32) *Resources {
	t.Helper()
	c := corpus.New(records)
	emb := &fakeEmbedder{dims: 1, vectors: map[string][]float32{}}
	for q, x := range queries {
		emb.vectors[q] = []float32{x}
	}

	var idx *index.FlatL2
	if c.Len() == 0 {
		idx = index.NewFlatL2(1)
	} else {
		vecs := make([]pgvector.Vector, c.Len())
		for i := range vecs {
			vecs[i] = pgvector.NewVector([]float32{float32(i)})
		}
		var err error
		idx, err = index.Build(vecs)
		require.NoError(t, err)
	}

	res, err := NewResources(c, idx, emb)
	require.NoError(t, err)
	return res
}

func rec(title string, calories, proteins float64) corpus.Record {
	return corpus.Record{
		Title:          title,
		IngredientsRaw: "bahan " + title,
		StepsRaw:       "1) masak " + title,
		Calories:       calories,
		Proteins:       proteins,
	}
}
