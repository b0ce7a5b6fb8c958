package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"recipe-rag/internal/pkg/common"

	"go.uber.org/zap"
)

// Unknown 表示營養欄位沒有資料（與真實的 0 區分）
const Unknown = -1.0

// Record 一筆食譜資料
type Record struct {
	Title          string
	IngredientsRaw string
	StepsRaw       string
	Calories       float64
	Proteins       float64
	// SearchText 僅供向量編碼使用，不回傳給使用者
	SearchText string
}

// HasNutrition 是否有資料集營養資訊
func (r Record) HasNutrition() bool {
	return r.Calories != Unknown
}

// Corpus 唯讀食譜集合，位置 i 與向量索引的位置 i 對齊
type Corpus struct {
	records []Record
}

// New 由已準備好的紀錄建立 Corpus，並補上 SearchText
func New(records []Record) *Corpus {
	out := make([]Record, len(records))
	for i, rec := range records {
		if rec.SearchText == "" {
			rec.SearchText = BuildSearchText(rec.Title, rec.IngredientsRaw)
		}
		out[i] = rec
	}
	return &Corpus{records: out}
}

// Len 食譜數量
func (c *Corpus) Len() int {
	if c == nil {
		return 0
	}
	return len(c.records)
}

// At 取得第 i 筆食譜
func (c *Corpus) At(i int) (Record, bool) {
	if c == nil || i < 0 || i >= len(c.records) {
		return Record{}, false
	}
	return c.records[i], true
}

// SearchTexts 依位置順序回傳所有 SearchText
func (c *Corpus) SearchTexts() []string {
	texts := make([]string, len(c.records))
	for i, rec := range c.records {
		texts[i] = rec.SearchText
	}
	return texts
}

// BuildSearchText 組合標題與食材作為編碼文字
func BuildSearchText(title, ingredients string) string {
	return "Masakan: " + title + " Bahan: " + strings.ReplaceAll(ingredients, "--", " ")
}

// JoinKey 標題 / 名稱正規化後的 join key
func JoinKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// nutrition 營養表中的一筆
type nutrition struct {
	calories float64
	proteins float64
}

// Load 讀取食譜表並 left join 營養表。
// 食譜表無法讀取時回傳錯誤；營養表缺失或格式錯誤只記錄警告，所有營養欄位為 Unknown。
func Load(recipePath, nutritionPath string) (*Corpus, error) {
	records, err := readRecipes(recipePath)
	if err != nil {
		return nil, err
	}

	table, err := readNutrition(nutritionPath)
	if err != nil {
		common.LogWarn("營養資料合併失敗，繼續使用無營養資訊的資料集",
			zap.String("path", nutritionPath),
			zap.Error(err),
		)
		table = nil
	}

	matched := 0
	for i := range records {
		records[i].Calories = Unknown
		records[i].Proteins = Unknown
		if n, ok := table[JoinKey(records[i].Title)]; ok {
			records[i].Calories = n.calories
			records[i].Proteins = n.proteins
			matched++
		}
		records[i].SearchText = BuildSearchText(records[i].Title, records[i].IngredientsRaw)
	}

	common.LogInfo("資料集已載入",
		zap.Int("recipes", len(records)),
		zap.Int("with_nutrition", matched),
	)

	return &Corpus{records: records}, nil
}

func readRecipes(path string) ([]Record, error) {
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, fmt.Errorf("corpus: reading recipe table: %w", err)
	}

	cols, err := locate(header, "title", "ingredients", "steps")
	if err != nil {
		return nil, fmt.Errorf("corpus: recipe table %s: %w", path, err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{
			Title:          field(row, cols["title"]),
			IngredientsRaw: field(row, cols["ingredients"]),
			StepsRaw:       field(row, cols["steps"]),
		})
	}
	return records, nil
}

func readNutrition(path string) (map[string]nutrition, error) {
	if path == "" {
		return nil, errors.New("nutrition path not configured")
	}
	rows, header, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	cols, err := locate(header, "name", "calories", "proteins")
	if err != nil {
		return nil, err
	}

	table := make(map[string]nutrition, len(rows))
	for _, row := range rows {
		key := JoinKey(field(row, cols["name"]))
		if key == "" {
			continue
		}
		// 重複 key 取第一筆，避免 join 後資料列倍增
		if _, exists := table[key]; exists {
			continue
		}
		table[key] = nutrition{
			calories: parseNumber(field(row, cols["calories"])),
			proteins: parseNumber(field(row, cols["proteins"])),
		}
	}
	return table, nil
}

func readCSV(path string) ([][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("empty csv")
		}
		return nil, nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}

// locate 以不分大小寫的欄位名稱找出欄位位置
func locate(header []string, names ...string) (map[string]int, error) {
	cols := make(map[string]int, len(names))
	for i, h := range header {
		key := JoinKey(h)
		if _, seen := cols[key]; !seen {
			cols[key] = i
		}
	}
	out := make(map[string]int, len(names))
	for _, name := range names {
		i, ok := cols[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		out[name] = i
	}
	return out, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return Unknown
	}
	return v
}
