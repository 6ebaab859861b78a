// Package textextract turns uploaded PDF, TXT and DOCX files into plain text.
package textextract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const (
	TypePDF  = "pdf"
	TypeTXT  = "txt"
	TypeDOCX = "docx"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrNoText          = errors.New("no extractable text")
)

var extractors = map[string]func([]byte) (string, error){
	TypePDF:  extractPDF,
	TypeTXT:  extractTXT,
	TypeDOCX: extractDOCX,
}

// FileType returns the lowercased extension of name without the dot, or ""
// when there is none.
func FileType(name string) string {
	ext := filepath.Ext(strings.TrimSpace(name))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func Supported(fileType string) bool {
	_, ok := extractors[strings.ToLower(fileType)]
	return ok
}

// Extract returns the trimmed text of data. A document that yields only
// whitespace is reported as ErrNoText.
func Extract(fileType string, data []byte) (string, error) {
	extract, ok := extractors[strings.ToLower(fileType)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, fileType)
	}
	text, err := extract(data)
	if err != nil {
		return "", fmt.Errorf("extract %s text failed: %w", fileType, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
