package providers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract runs OCR locally through the Tesseract engine. A fresh engine
// client is created per call because gosseract clients are not safe for
// concurrent use.
type Tesseract struct {
	languages []string
}

func NewTesseract(languages ...string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng", "tel"}
	}
	return &Tesseract{languages: languages}
}

func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image for ocr: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return nil, fmt.Errorf("configuring ocr languages: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("loading image into ocr engine: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("running ocr: %w", err)
	}

	var fragments []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			fragments = append(fragments, line)
		}
	}
	return fragments, nil
}
