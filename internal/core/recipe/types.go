package recipe

import (
	"errors"
	"strings"
)

// Mode 生成模式
type Mode string

const (
	ModeNormal Mode = "normal"
	ModeDiet   Mode = "diet"
)

// ParseMode 解析模式字串，未知值視為 normal
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == ModeDiet {
		return ModeDiet
	}
	return ModeNormal
}

// Status 生成結果狀態
type Status string

const (
	StatusOK              Status = "ok"
	StatusNotFound        Status = "not_found"
	StatusGenerationError Status = "generation_error"
	StatusNotReady        Status = "not_ready"
)

// 使用者看到的固定訊息
const (
	msgGenerationError = "Maaf, dapur sedang kendala teknis."
	msgNotReady        = "Maaf, sumber daya resep belum dimuat."
	msgNotFoundFormat  = "Maaf, stok resep untuk '%s' tidak ditemukan."
)

var (
	// ErrNotReady 資料集或索引尚未建立
	ErrNotReady = errors.New("recipe: resources not loaded")
	// ErrNoCandidates 檢索沒有可用候選
	ErrNoCandidates = errors.New("recipe: no candidates")
	// ErrGeneration 生成失敗
	ErrGeneration = errors.New("recipe: generation failed")
	// ErrMalformedOutput 清理後內容只剩營養區段
	ErrMalformedOutput = errors.New("recipe: malformed generation output")
)

// Result GenerateRecipe 的結構化結果
type Result struct {
	Status  Status `json:"status"`
	Recipe  string `json:"recipe,omitempty"`
	Message string `json:"message,omitempty"`
	Mode    Mode   `json:"mode"`
	// Reference 作為 context 的資料集食譜標題
	Reference string `json:"reference,omitempty"`
	Err       error  `json:"-"`
}

// OK 是否成功
func (r *Result) OK() bool {
	return r.Status == StatusOK
}
