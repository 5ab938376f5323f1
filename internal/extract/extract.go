// Package extract implements the semantic pipeline's content extractor
// (C10): dispatch-by-extension text extraction for plain-text formats, PDF,
// and DOCX, followed by a whitespace-collapsing clean step. Grounded on the
// teacher's internal/chunk.extractor.go dispatch shape (now re-purposed:
// that file walked ASTs for code symbols, dropped here in favor of the
// spec's document-text extraction — see DESIGN.md), with the PDF/DOCX
// backends drawn from the wider example pack's manifests
// (github.com/ledongthuc/pdf, github.com/nguyenthenguyen/docx).
package extract

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Placeholder is recorded when a file cannot yield usable text: a scanned
// PDF with no extractable layer, or an unsupported format whose plain-text
// fallback also failed.
const Placeholder = "[unsupported content]"

// plainTextExtensions text-extract verbatim; everything else is attempted
// as plain text and falls back to Placeholder on failure (spec.md §4.10).
var plainTextExtensions = map[string]bool{
	".txt": true, ".md": true, ".log": true, ".json": true, ".xml": true,
	".yaml": true, ".yml": true, ".toml": true, ".ini": true, ".cfg": true,
	".rs": true, ".js": true, ".ts": true, ".py": true, ".java": true,
	".cpp": true, ".c": true, ".h": true, ".cs": true, ".go": true,
	".rb": true, ".php": true, ".html": true, ".css": true,
}

// Extract reads path and returns its cleaned text content, dispatching on
// the lowercased extension. It never returns an error for a format it does
// not recognize — it falls back to a plain-text attempt and, failing that,
// Placeholder.
func Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var raw string
	var err error
	switch ext {
	case ".pdf":
		raw, err = extractPDF(path)
	case ".docx":
		raw, err = extractDOCX(path)
	default:
		raw, err = extractPlainText(path)
	}
	if err != nil || strings.TrimSpace(raw) == "" {
		if ext == ".pdf" {
			// An empty PDF extraction means a scanned (image-only) document,
			// not a failure: record the placeholder rather than propagating.
			return Placeholder, nil
		}
		if err != nil || !plainTextExtensions[ext] {
			return Placeholder, nil
		}
	}
	return clean(raw), nil
}

func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extractPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	totalPages := r.NumPage()
	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\n")
	}
	return buf.String(), nil
}

func extractDOCX(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()
	return doc.Editable().GetContent(), nil
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var blankLineRun = regexp.MustCompile(`\n{3,}`)

// clean collapses blank lines and runs of whitespace, per spec.md §4.10.
func clean(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// IsUnsupportedPlaceholder reports whether text is the sentinel produced for
// an extraction that yielded no usable content.
func IsUnsupportedPlaceholder(text string) bool {
	return text == Placeholder
}
