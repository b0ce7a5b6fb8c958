package index

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pgvector/pgvector-go"
)

// NoCandidate 結果不足 k 筆時的補位位置
const NoCandidate = -1

var (
	// ErrEmptyIndex 沒有任何向量
	ErrEmptyIndex = errors.New("index: no vectors")
	// ErrDimensionMismatch 向量維度不一致
	ErrDimensionMismatch = errors.New("index: dimension mismatch")
)

// Neighbor 一筆搜尋結果；Position 為 NoCandidate 時表示無結果
type Neighbor struct {
	Position int
	Distance float32
}

// FlatL2 暴力搜尋的平方歐氏距離索引，建立後唯讀，可並行查詢
type FlatL2 struct {
	dims int
	data []float32
	n    int
}

// NewFlatL2 建立指定維度的空索引；空索引的搜尋結果全部是 NoCandidate
func NewFlatL2(dims int) *FlatL2 {
	return &FlatL2{dims: dims}
}

// Build 由向量建立索引，位置 i 對應 vectors[i]
func Build(vectors []pgvector.Vector) (*FlatL2, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	dims := len(vectors[0].Slice())
	if dims == 0 {
		return nil, fmt.Errorf("%w: zero-length vector", ErrDimensionMismatch)
	}

	f := NewFlatL2(dims)
	if err := f.add(vectors); err != nil {
		return nil, err
	}
	return f, nil
}

// add 只在建立時呼叫，建立後索引不再變動
func (f *FlatL2) add(vectors []pgvector.Vector) error {
	data := make([]float32, 0, f.dims*len(vectors))
	for i, v := range vectors {
		s := v.Slice()
		if len(s) != f.dims {
			return fmt.Errorf("%w: vector %d has %d dims, want %d", ErrDimensionMismatch, i, len(s), f.dims)
		}
		data = append(data, s...)
	}
	f.data = append(f.data, data...)
	f.n += len(vectors)
	return nil
}

// Len 向量數量
func (f *FlatL2) Len() int {
	if f == nil {
		return 0
	}
	return f.n
}

// Dimensions 向量維度
func (f *FlatL2) Dimensions() int {
	return f.dims
}

// Search 回傳剛好 k 筆結果，依距離遞增；距離相同時位置小者在前。
// k 大於索引大小時以 NoCandidate 補位。
func (f *FlatL2) Search(query pgvector.Vector, k int) ([]Neighbor, error) {
	q := query.Slice()
	if len(q) != f.dims {
		return nil, fmt.Errorf("%w: query has %d dims, want %d", ErrDimensionMismatch, len(q), f.dims)
	}
	if k <= 0 {
		return []Neighbor{}, nil
	}

	all := make([]Neighbor, f.n)
	for i := 0; i < f.n; i++ {
		row := f.data[i*f.dims : (i+1)*f.dims]
		var d float32
		for j, x := range row {
			diff := x - q[j]
			d += diff * diff
		}
		all[i] = Neighbor{Position: i, Distance: d}
	}

	sort.SliceStable(all, func(a, b int) bool {
		return all[a].Distance < all[b].Distance
	})

	out := make([]Neighbor, k)
	for i := range out {
		if i < len(all) {
			out[i] = all[i]
		} else {
			out[i] = Neighbor{Position: NoCandidate}
		}
	}
	return out, nil
}
