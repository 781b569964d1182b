package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"go-card-scanner/internal/preprocess"
	"go-card-scanner/pkg/models"
)

// tesseractEngine is the primary local OCR engine. A fresh gosseract client
// is created per attempt; the client is not safe for concurrent reuse.
type tesseractEngine struct {
	language string
}

func NewTesseractEngine(language string) Engine {
	if language == "" {
		language = "eng"
	}
	return &tesseractEngine{language: language}
}

func (e *tesseractEngine) Name() string { return "tesseract" }

func (e *tesseractEngine) Priority() int { return 0 }

func (e *tesseractEngine) Available() bool { return true }

func (e *tesseractEngine) OriginalOnly() bool { return false }

func (e *tesseractEngine) Recognize(_ context.Context, variant preprocess.Variant) (models.OCRAttempt, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, variant.Image); err != nil {
		return models.OCRAttempt{}, fmt.Errorf("encoding %s variant: %w", variant.Label, err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.language); err != nil {
		return models.OCRAttempt{}, fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return models.OCRAttempt{}, fmt.Errorf("setting image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return models.OCRAttempt{}, fmt.Errorf("tesseract failed on %s variant: %w", variant.Label, err)
	}

	return models.OCRAttempt{
		Text:         text,
		Confidence:   estimateConfidence(text),
		EngineLabel:  e.Name(),
		VariantLabel: variant.Label,
	}, nil
}

// estimateConfidence scores text plausibility since the plain Text() API
// reports no per-block confidence. Tuned for the short, dense text of a
// business card rather than full documents.
func estimateConfidence(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0.0
	}

	confidence := 0.5

	words := strings.Fields(trimmed)
	if len(words) >= 4 {
		confidence += 0.1
	}
	if len(words) >= 10 {
		confidence += 0.1
	}

	alphaCount := 0
	for _, r := range trimmed {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alphaCount++
		}
	}
	alphaRatio := float64(alphaCount) / float64(len(trimmed))
	if alphaRatio > 0.4 && alphaRatio < 0.9 {
		confidence += 0.15
	}

	if confidence > 0.85 {
		confidence = 0.85
	}
	return confidence
}
