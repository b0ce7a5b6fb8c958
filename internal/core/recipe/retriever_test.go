package recipe

import (
	"context"
	"fmt"
	"testing"

	"recipe-rag/internal/core/corpus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fifteenCandidates 最近者沒有蛋白質資料，第 9 近者有 40g
func fifteenCandidates() []corpus.Record {
	records := make([]corpus.Record, 20)
	for i := range records {
		records[i] = rec(fmt.Sprintf("Resep %02d", i), corpus.Unknown, corpus.Unknown)
	}
	records[3] = rec("Pepes Ikan", 200, 12)
	records[8] = rec("Dada Ayam Panggang", 250, 40)
	records[18] = rec("Terlalu Jauh", 300, 99)
	return records
}

func TestRetriever_DietOverridesDistance(t *testing.T) {
	res := lineResources(t, fifteenCandidates(), map[string]float32{"ayam": 0})
	r := NewRetriever(res, 15)
	ctx := context.Background()

	cands, err := r.Candidates(ctx, "ayam")
	require.NoError(t, err)
	require.Len(t, cands, 15)
	assert.Equal(t, 0, cands[0].Position)

	normal, err := r.Retrieve(ctx, "ayam", ModeNormal)
	require.NoError(t, err)
	assert.Equal(t, "Resep 00", normal.Record.Title)

	diet, err := r.Retrieve(ctx, "ayam", ModeDiet)
	require.NoError(t, err)
	assert.Equal(t, "Dada Ayam Panggang", diet.Record.Title, "candidates beyond top-k are never considered")
}

func TestRetriever_DietFallsBackToNearest(t *testing.T) {
	records := []corpus.Record{
		rec("Sayur Lodeh", corpus.Unknown, corpus.Unknown),
		rec("Es Teh", 90, 0),
	}
	res := lineResources(t, records, map[string]float32{"sayur": 0})

	best, err := NewRetriever(res, 15).Retrieve(context.Background(), "sayur", ModeDiet)
	require.NoError(t, err)
	assert.Equal(t, "Sayur Lodeh", best.Record.Title)
}

func TestSelectCandidate_StableOnEqualProtein(t *testing.T) {
	cands := []Candidate{
		{Position: 4, Record: rec("A", 100, 20)},
		{Position: 1, Record: rec("B", 100, 30)},
		{Position: 2, Record: rec("C", 100, 30)},
	}
	assert.Equal(t, "B", SelectCandidate(cands, ModeDiet).Record.Title)
	assert.Equal(t, "A", SelectCandidate(cands, ModeNormal).Record.Title)
}

func TestRetriever_NoCandidates(t *testing.T) {
	res := lineResources(t, nil, nil)
	_, err := NewRetriever(res, 15).RetrieveSmartFilter(context.Background(), "batu", ModeNormal)
	assert.ErrorIs(t, err, ErrNoCandidates)
}

func TestRetriever_NotReady(t *testing.T) {
	_, err := NewRetriever(nil, 15).RetrieveSmartFilter(context.Background(), "ayam", ModeNormal)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestRetriever_EncodeFailure(t *testing.T) {
	res := lineResources(t, []corpus.Record{rec("Soto", 1, 1)}, nil)
	res.Embedder = &fakeEmbedder{dims: 1, err: assert.AnError}

	_, err := NewRetriever(res, 15).Retrieve(context.Background(), "soto", ModeNormal)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRetrieveSmartFilter_FormatsContext(t *testing.T) {
	res := lineResources(t, []corpus.Record{rec("Soto", 280, 25.5)}, map[string]float32{"soto": 0})
	ctx, err := NewRetriever(res, 0).RetrieveSmartFilter(context.Background(), "soto", ModeNormal)
	require.NoError(t, err)
	assert.Equal(t, "Judul: Soto\nBahan Asli: bahan Soto\nLangkah Asli: 1) masak Soto\n[Info Nutrisi Dataset]: Kalori: 280 kcal, Protein: 25.5 g", ctx)
}

func TestFormatContext_UnknownNutrition(t *testing.T) {
	out := FormatContext(rec("Gado Gado", corpus.Unknown, corpus.Unknown))
	assert.Contains(t, out, "[Info Nutrisi Dataset]: Data tidak tersedia")
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeDiet, ParseMode("diet"))
	assert.Equal(t, ModeDiet, ParseMode(" DIET "))
	assert.Equal(t, ModeNormal, ParseMode("normal"))
	assert.Equal(t, ModeNormal, ParseMode(""))
	assert.Equal(t, ModeNormal, ParseMode("keto"))
}
