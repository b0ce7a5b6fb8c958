package recipe

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"recipe-rag/internal/core/corpus"
	"recipe-rag/internal/core/index"
	"recipe-rag/internal/pkg/common"

	"go.uber.org/zap"
)

// DefaultTopK 每次檢索的候選數量
const DefaultTopK = 15

// Candidate 檢索候選
type Candidate struct {
	Position int
	Distance float32
	Record   corpus.Record
}

// Retriever 向量檢索 + 模式重排
type Retriever struct {
	resources *Resources
	topK      int
}

// NewRetriever 創建檢索器
func NewRetriever(res *Resources, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{resources: res, topK: topK}
}

// Candidates 回傳依距離遞增的候選，已移除無效位置
func (r *Retriever) Candidates(ctx context.Context, query string) ([]Candidate, error) {
	if r.resources == nil || r.resources.Index == nil || r.resources.Corpus == nil {
		return nil, ErrNotReady
	}

	vec, err := r.resources.Embedder.EncodeOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	neighbors, err := r.resources.Index.Search(vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	cands := make([]Candidate, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Position == index.NoCandidate {
			continue
		}
		rec, ok := r.resources.Corpus.At(n.Position)
		if !ok {
			continue
		}
		cands = append(cands, Candidate{Position: n.Position, Distance: n.Distance, Record: rec})
	}
	return cands, nil
}

// Retrieve 檢索並依模式選出一筆食譜
func (r *Retriever) Retrieve(ctx context.Context, query string, mode Mode) (Candidate, error) {
	cands, err := r.Candidates(ctx, query)
	if err != nil {
		return Candidate{}, err
	}
	if len(cands) == 0 {
		return Candidate{}, ErrNoCandidates
	}

	best := SelectCandidate(cands, mode)
	common.LogInfo("檢索完成",
		zap.String("query", query),
		zap.String("mode", string(mode)),
		zap.Int("candidates", len(cands)),
		zap.String("selected", best.Record.Title),
		zap.Float64("proteins", best.Record.Proteins),
	)
	return best, nil
}

// RetrieveSmartFilter 檢索並格式化為 prompt 的 context 區塊
func (r *Retriever) RetrieveSmartFilter(ctx context.Context, query string, mode Mode) (string, error) {
	best, err := r.Retrieve(ctx, query, mode)
	if err != nil {
		return "", err
	}
	return FormatContext(best.Record), nil
}

// SelectCandidate 預設取最近者；diet 模式在 proteins > 0 的候選中取蛋白質最高者，
// 完全不考慮距離；沒有此類候選時退回最近者。cands 必須非空且依距離排序。
func SelectCandidate(cands []Candidate, mode Mode) Candidate {
	best := cands[0]
	if mode != ModeDiet {
		return best
	}

	valid := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Record.Proteins > 0 {
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		return best
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Record.Proteins > valid[j].Record.Proteins
	})
	return valid[0]
}

// FormatContext 將食譜格式化為固定版面的參考資料
func FormatContext(rec corpus.Record) string {
	nutri := "Data tidak tersedia"
	if rec.HasNutrition() {
		nutri = fmt.Sprintf("Kalori: %s kcal, Protein: %s g", formatNumber(rec.Calories), formatNumber(rec.Proteins))
	}

	var b strings.Builder
	b.WriteString("Judul: " + rec.Title + "\n")
	b.WriteString("Bahan Asli: " + rec.IngredientsRaw + "\n")
	b.WriteString("Langkah Asli: " + rec.StepsRaw + "\n")
	b.WriteString("[Info Nutrisi Dataset]: " + nutri)
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
