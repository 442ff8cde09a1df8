// Package readers resolves corpus files into ingestable documents. Plain
// text and office formats are read directly; PDFs and images are handed to
// the OCR extraction path untouched.
package readers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/mantravadi/granthalaya/corpus"
)

// Resolve maps a corpus file onto a Document for the ingestion pipeline, or
// reports that the file type is not supported.
func Resolve(path string) (corpus.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md":
		text, err := readPlain(path)
		if err != nil {
			return corpus.Document{}, err
		}
		return corpus.Document{Bytes: []byte(text), Kind: corpus.KindText}, nil

	case ".docx", ".odt", ".rtf", ".xml", ".html":
		text, err := readConverted(path)
		if err != nil {
			return corpus.Document{}, err
		}
		return corpus.Document{Bytes: []byte(text), Kind: corpus.KindText}, nil

	case ".pdf":
		buf, err := os.ReadFile(path)
		if err != nil {
			return corpus.Document{}, fmt.Errorf("reading pdf file: %w", err)
		}
		return corpus.Document{Bytes: buf, Kind: corpus.KindPDF}, nil

	case ".png", ".jpg", ".jpeg":
		buf, err := os.ReadFile(path)
		if err != nil {
			return corpus.Document{}, fmt.Errorf("reading image file: %w", err)
		}
		return corpus.Document{Bytes: buf, Kind: corpus.KindImage}, nil
	}

	return corpus.Document{}, fmt.Errorf("unsupported file type: %s", ext)
}

// Supported reports whether Resolve can handle the file.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".docx", ".odt", ".rtf", ".xml", ".html", ".pdf", ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

func readPlain(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading text file: %w", err)
	}
	return string(buf), nil
}

func readConverted(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("converting document: %w", err)
	}
	return res.Body, nil
}
