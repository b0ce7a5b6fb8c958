package recipe

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"recipe-rag/internal/core/ai/embedding"
	"recipe-rag/internal/core/corpus"
	"recipe-rag/internal/core/index"
	"recipe-rag/internal/infrastructure/config"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetCSV = `Title,Ingredients,Steps,Loves,URL
Tahu Ayam Kecap,ayam--tahu--kecap manis,1) Tumis--2) Masak,1,u
Kue Cubit,tepung terigu--gula--telur,1) Aduk--2) Panggang,2,u
Sayur Bayam Bening,bayam--jagung--bawang merah,1) Rebus,3,u
`

const nutritionTable = `name,calories,proteins
tahu ayam kecap,320,28
`

func TestLoadResources_WithHashEmbedder(t *testing.T) {
	dir := t.TempDir()
	recipes := filepath.Join(dir, "recipes.csv")
	nutrition := filepath.Join(dir, "nutrition.csv")
	require.NoError(t, os.WriteFile(recipes, []byte(datasetCSV), 0o644))
	require.NoError(t, os.WriteFile(nutrition, []byte(nutritionTable), 0o644))

	res, err := LoadResources(context.Background(), config.DatasetConfig{
		RecipePath:    recipes,
		NutritionPath: nutrition,
	}, embedding.NewHashEmbedder(256))
	require.NoError(t, err)
	assert.Equal(t, res.Corpus.Len(), res.Index.Len())
	assert.Equal(t, 256, res.Index.Dimensions())

	best, err := NewRetriever(res, 15).Retrieve(context.Background(), "ayam tahu kecap", ModeNormal)
	require.NoError(t, err)
	assert.Equal(t, "Tahu Ayam Kecap", best.Record.Title)
	assert.Equal(t, 28.0, best.Record.Proteins)
}

func TestLoadResources_MissingRecipeTable(t *testing.T) {
	_, err := LoadResources(context.Background(), config.DatasetConfig{
		RecipePath: filepath.Join(t.TempDir(), "missing.csv"),
	}, embedding.NewHashEmbedder(8))
	assert.Error(t, err)
}

func TestNewResources_RejectsMisalignedIndex(t *testing.T) {
	c := corpus.New([]corpus.Record{rec("A", 1, 1), rec("B", 1, 1)})
	idx, err := index.Build([]pgvector.Vector{pgvector.NewVector([]float32{1})})
	require.NoError(t, err)

	_, err = NewResources(c, idx, &fakeEmbedder{dims: 1})
	assert.Error(t, err)

	_, err = NewResources(nil, idx, &fakeEmbedder{dims: 1})
	assert.Error(t, err)
}

func TestResourceLoader_LoadsOnceUnderConcurrency(t *testing.T) {
	res := lineResources(t, []corpus.Record{rec("A", 1, 1)}, nil)
	var calls int32
	loader := NewResourceLoader(func(ctx context.Context) (*Resources, error) {
		atomic.AddInt32(&calls, 1)
		return res, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := loader.Get(context.Background())
			assert.NoError(t, err)
			assert.Same(t, res, got)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, loader.Ready())
}

func TestNewStaticLoader(t *testing.T) {
	assert.False(t, NewStaticLoader(nil).Ready())

	_, err := NewStaticLoader(nil).Get(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}
