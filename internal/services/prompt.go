package services

import (
	"fmt"

	"github.com/desertthunder/gerak/internal/models"
	"google.golang.org/genai"
)

// PromptVersion identifies the instruction text and response schema pair sent to the model.
// Bump it whenever either changes so logs can be correlated with output quality.
const PromptVersion = "2025-01.v1"

const promptTemplate = `Anda adalah seorang ahli analisa postur untuk aplikasi PJOK (Pendidikan Jasmani, Olahraga, dan Kesehatan) anak-anak.

Tugas Anda adalah menganalisa gambar seorang anak yang sedang menirukan gerakan lokomotor '%[1]s'.

Berdasarkan gambar, berikan output dalam format JSON yang valid. Jangan sertakan markdown backticks (` + "```json" + `).

Struktur JSON harus mengikuti skema yang telah ditentukan.

Aturan:
1.  'pose': Deteksi 17 keypoint tubuh utama (standar COCO) dan berikan koordinat x, y yang dinormalisasi (antara 0.0 dan 1.0) dari gambar. Jika keypoint tidak terlihat, berikan x: 0, y: 0.
2.  'feedback': Bandingkan postur anak dengan postur ideal untuk gerakan '%[1]s'. Untuk setiap keypoint utama (lengan, kaki, bahu, pinggul), tentukan apakah posisinya 'correct' atau 'incorrect'.
3.  'text': Berikan satu kalimat umpan balik yang singkat, positif, dan membangun dalam Bahasa Indonesia untuk anak kelas 1 SD. Contoh: "Hebat! Coba angkat lututmu sedikit lebih tinggi lagi ya!".

Analisa gambar siswa berikut dan hasilkan JSON yang sesuai.`

// BuildPrompt returns the instruction text for movementName.
func BuildPrompt(movementName string) string {
	return fmt.Sprintf(promptTemplate, movementName)
}

// ResponseSchema declares {pose: {<part>: {x, y}}, feedback: {<part>: string}, text: string}.
func ResponseSchema() *genai.Schema {
	pose := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}
	feedback := &genai.Schema{Type: genai.TypeObject, Properties: map[string]*genai.Schema{}}

	for _, part := range models.BodyParts() {
		pose.Properties[part.String()] = &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"x": {Type: genai.TypeNumber},
				"y": {Type: genai.TypeNumber},
			},
		}
		feedback.Properties[part.String()] = &genai.Schema{Type: genai.TypeString}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"text":     {Type: genai.TypeString},
			"pose":     pose,
			"feedback": feedback,
		},
		Required: []string{"pose", "feedback", "text"},
	}
}
