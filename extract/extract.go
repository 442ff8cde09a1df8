// Package extract normalizes heterogeneous inputs (images, PDFs, plain text)
// into a single plain-text string, running OCR where the input is pixels.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/mantravadi/granthalaya/corpus"
)

// Recognizer is the OCR capability the extractor depends on. Implementations
// return text fragments in reading order.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]string, error)
}

// ExtractionError reports an unsupported or unreadable input, or an OCR
// provider failure. Ingestion aborts when it is returned; no chunks are
// indexed.
type ExtractionError struct {
	Kind corpus.MediaKind
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s document: %s", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor turns documents into plain text.
type Extractor struct {
	ocr Recognizer
}

func NewExtractor(ocr Recognizer) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract returns the plain text of doc. Text documents pass through
// untouched; images are OCR'd once; PDFs are rasterized and OCR'd page by
// page, page 1 first. A PDF with zero pages yields an empty string.
func (e *Extractor) Extract(ctx context.Context, doc corpus.Document) (string, error) {
	if len(doc.Bytes) == 0 {
		return "", &ExtractionError{Kind: doc.Kind, Err: errors.New("document has no content")}
	}

	switch doc.Kind {
	case corpus.KindText:
		return string(doc.Bytes), nil
	case corpus.KindImage:
		return e.extractImage(ctx, doc.Bytes)
	case corpus.KindPDF:
		return e.extractPDF(ctx, doc.Bytes)
	}

	return "", &ExtractionError{Kind: doc.Kind, Err: errors.New("unsupported media kind")}
}

func (e *Extractor) extractImage(ctx context.Context, buf []byte) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(buf))
	if err != nil {
		return "", &ExtractionError{Kind: corpus.KindImage, Err: fmt.Errorf("decoding image: %w", err)}
	}

	fragments, err := e.ocr.Recognize(ctx, img)
	if err != nil {
		return "", &ExtractionError{Kind: corpus.KindImage, Err: err}
	}

	return strings.Join(fragments, "\n"), nil
}

func (e *Extractor) extractPDF(ctx context.Context, buf []byte) (string, error) {
	pdf, err := fitz.NewFromMemory(buf)
	if err != nil {
		return "", &ExtractionError{Kind: corpus.KindPDF, Err: fmt.Errorf("opening pdf: %w", err)}
	}
	defer pdf.Close()

	var fragments []string
	for page := 0; page < pdf.NumPage(); page++ {
		img, err := pdf.Image(page)
		if err != nil {
			return "", &ExtractionError{Kind: corpus.KindPDF, Err: fmt.Errorf("rasterizing page %d: %w", page+1, err)}
		}

		parts, err := e.ocr.Recognize(ctx, img)
		if err != nil {
			// Any page failure is fatal to the whole document.
			return "", &ExtractionError{Kind: corpus.KindPDF, Err: fmt.Errorf("page %d: %w", page+1, err)}
		}

		fragments = append(fragments, parts...)
	}

	return strings.Join(fragments, "\n"), nil
}
