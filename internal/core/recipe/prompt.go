package recipe

import "strings"

const dietInstruction = "Karena user meminta MODE DIET, kurangi penggunaan minyak, gula, dan santan."

const promptTemplate = `### Instruction:
Anda adalah Chef Profesional. Buat SATU resep lengkap menggunakan bahan '{bahan}' berdasarkan referensi [CONTEXT] berikut.

ATURAN PENTING:
1. Format Output WAJIB:
   - Nama Masakan: [Nama yang menarik]
   - Bahan-bahan: [List bahan dengan bullet point]
   - Cara Membuat: [Langkah-langkah dengan nomor]
   - Informasi Gizi: [Estimasi Kalori & Protein]
2. Gunakan Bahasa Indonesia yang rapi.
3. JANGAN mengulang-ulang kalimat.
4. {diet}

[CONTEXT]:
{context}

### Input:
Buatkan resep untuk: {bahan}

### Response:
`

// BuildPrompt 組合指令模板；相同輸入必定產生相同輸出
func BuildPrompt(ingredients string, mode Mode, context string) string {
	diet := ""
	if mode == ModeDiet {
		diet = dietInstruction
	}
	r := strings.NewReplacer(
		"{bahan}", ingredients,
		"{diet}", diet,
		"{context}", context,
	)
	return r.Replace(promptTemplate)
}
