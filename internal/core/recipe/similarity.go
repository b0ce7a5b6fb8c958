package recipe

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity Ratcliff/Obershelp 相似度 2*M/T，以 rune 為單位（含 autojunk 規則）
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
