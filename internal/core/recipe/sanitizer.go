package recipe

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"recipe-rag/internal/infrastructure/config"
)

// 標準區段標題
const (
	HeadingIngredients = "Bahan-bahan:"
	HeadingSteps       = "Cara Membuat:"
	HeadingNutrition   = "Informasi Gizi (Estimasi per porsi):"

	dishNameMarker    = "Nama Masakan:"
	nutritionFallback = "\n- Kalori: Estimasi 350-500 kkal\n- Protein: Data spesifik belum tersedia"
)

type section int

const (
	sectionHeader section = iota
	sectionIngredients
	sectionSteps
	sectionNutrition
)

// sectionMarkers 依序檢查，先符合者優先
var sectionMarkers = []struct {
	section section
	heading string
	markers []string
}{
	{sectionIngredients, HeadingIngredients, []string{"Bahan-bahan:", "Bahan:"}},
	{sectionSteps, HeadingSteps, []string{"Cara Membuat:", "Langkah:"}},
	{sectionNutrition, HeadingNutrition, []string{"Informasi Gizi", "Info Nutrisi"}},
}

// SanitizerConfig 清理參數
type SanitizerConfig struct {
	SimilarityThreshold float64
	Window              int
	MinLoopLength       int
	KillSwitch          []string
	NutritionKeywords   []string
}

// DefaultSanitizerConfig 預設清理參數
func DefaultSanitizerConfig() SanitizerConfig {
	return SanitizerConfig{
		SimilarityThreshold: 0.85,
		Window:              5,
		MinLoopLength:       10,
		KillSwitch:          append([]string(nil), config.DefaultKillSwitch...),
		NutritionKeywords:   append([]string(nil), config.DefaultNutritionKeywords...),
	}
}

// SanitizerConfigFrom 由設定檔建立，未設定的欄位使用預設值
func SanitizerConfigFrom(cfg config.SanitizerConfig) SanitizerConfig {
	out := DefaultSanitizerConfig()
	if cfg.SimilarityThreshold > 0 {
		out.SimilarityThreshold = cfg.SimilarityThreshold
	}
	if cfg.Window > 0 {
		out.Window = cfg.Window
	}
	if cfg.MinLoopLength > 0 {
		out.MinLoopLength = cfg.MinLoopLength
	}
	if len(cfg.KillSwitch) > 0 {
		out.KillSwitch = cfg.KillSwitch
	}
	if len(cfg.NutritionKeywords) > 0 {
		out.NutritionKeywords = cfg.NutritionKeywords
	}
	return out
}

// Sanitizer 將模型輸出整理成四個區段，並保證結尾有營養資訊。
// 無狀態，可並行使用。
type Sanitizer struct {
	cfg      SanitizerConfig
	keywords []string
}

// NewSanitizer 創建 Sanitizer
func NewSanitizer(cfg SanitizerConfig) *Sanitizer {
	keywords := make([]string, len(cfg.NutritionKeywords))
	for i, k := range cfg.NutritionKeywords {
		keywords[i] = strings.ToLower(k)
	}
	return &Sanitizer{cfg: cfg, keywords: keywords}
}

// cleanState 單次清理的狀態
type cleanState struct {
	section section
	out     []string
	history []string
	// nutrition 營養標題是否已輸出
	nutrition bool
}

func (st *cleanState) lastNonEmpty() bool {
	return len(st.out) > 0 && st.out[len(st.out)-1] != ""
}

// heading 進入區段時輸出標題；營養標題只輸出一次，其他區段從別的區段回來時重新輸出
func (st *cleanState) heading(sec section, heading string) {
	if st.section == sec || (sec == sectionNutrition && st.nutrition) {
		st.section = sec
		return
	}
	st.section = sec
	if sec == sectionNutrition {
		st.nutrition = true
	}
	if st.lastNonEmpty() {
		st.out = append(st.out, "")
	}
	st.out = append(st.out, heading)
}

func (st *cleanState) remember(line string, window int) {
	st.history = append(st.history, line)
	if len(st.history) > window {
		st.history = st.history[len(st.history)-window:]
	}
}

// Clean 清理模型輸出；空字串回傳空字串
func (s *Sanitizer) Clean(raw string) string {
	if raw == "" {
		return ""
	}

	text := strings.ReplaceAll(raw, "--", "\n- ")
	text = strings.ReplaceAll(text, "Bahan-bahan Lengkap:", HeadingIngredients)
	text = fixCommaSpacing(text)

	st := &cleanState{section: sectionHeader}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)

		if stripped == "" || stripped == "-" {
			if stripped == "" && st.lastNonEmpty() {
				st.out = append(st.out, "")
			}
			continue
		}

		if s.killSwitch(stripped) {
			break
		}

		if s.looping(stripped, st.history) {
			continue
		}

		if sec, heading, ok := detectSection(stripped); ok {
			st.heading(sec, heading)
			continue
		}

		switch st.section {
		case sectionIngredients:
			if strings.HasPrefix(stripped, "-") {
				st.out = append(st.out, stripped)
			} else if r, _ := utf8.DecodeRuneInString(stripped); unicode.IsDigit(r) || unicode.IsLetter(r) {
				st.out = append(st.out, "- "+stripped)
			}
		case sectionSteps:
			st.out = append(st.out, stripped)
		case sectionNutrition:
			if s.nutritionFact(stripped) {
				st.out = append(st.out, stripped)
			}
		default:
			if strings.Contains(stripped, dishNameMarker) {
				st.out = append(st.out, stripped)
			}
		}

		st.remember(stripped, s.cfg.Window)
	}

	return appendNutritionFallback(strings.TrimSpace(strings.Join(st.out, "\n")))
}

// IsDegenerate 清理結果除了營養區段之外沒有任何內容
func IsDegenerate(clean string) bool {
	i := strings.Index(clean, HeadingNutrition)
	if i < 0 {
		return strings.TrimSpace(clean) == ""
	}
	return strings.TrimSpace(clean[:i]) == ""
}

func (s *Sanitizer) killSwitch(line string) bool {
	for _, k := range s.cfg.KillSwitch {
		if strings.Contains(line, k) {
			return true
		}
	}
	return false
}

func (s *Sanitizer) looping(line string, history []string) bool {
	if utf8.RuneCountInString(line) <= s.cfg.MinLoopLength {
		return false
	}
	for _, seen := range history {
		if Similarity(line, seen) > s.cfg.SimilarityThreshold {
			return true
		}
	}
	return false
}

func (s *Sanitizer) nutritionFact(line string) bool {
	lower := strings.ToLower(line)
	for _, k := range s.keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func detectSection(line string) (section, string, bool) {
	for _, m := range sectionMarkers {
		for _, marker := range m.markers {
			if strings.Contains(line, marker) {
				return m.section, m.heading, true
			}
		}
	}
	return sectionHeader, "", false
}

// appendNutritionFallback 營養標題後沒有實際內容，或整段缺失時補上估計值
func appendNutritionFallback(result string) string {
	if i := strings.Index(result, HeadingNutrition); i >= 0 {
		tail := strings.TrimSpace(result[i+len(HeadingNutrition):])
		if utf8.RuneCountInString(tail) < 5 {
			result += nutritionFallback
		}
		return result
	}
	if result != "" {
		result += "\n\n"
	}
	return result + HeadingNutrition + nutritionFallback
}

// fixCommaSpacing 逗號後面不是空白或數字時補一個空白（"1,5" 保持不變）
func fixCommaSpacing(text string) string {
	if !strings.Contains(text, ",") {
		return text
	}
	var b strings.Builder
	b.Grow(len(text) + 8)
	for i := 0; i < len(text); i++ {
		b.WriteByte(text[i])
		if text[i] != ',' {
			continue
		}
		if i+1 < len(text) {
			if next, _ := utf8.DecodeRuneInString(text[i+1:]); unicode.IsSpace(next) || unicode.IsDigit(next) {
				continue
			}
		}
		b.WriteByte(' ')
	}
	return b.String()
}
