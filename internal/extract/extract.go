// Package extract turns uploaded course documents into plain text.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupported is returned for file types that have no extractor.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrInvalidEncoding is returned when extracted text is not UTF-8, e.g. a Latin-1 text file.
	ErrInvalidEncoding = errors.New("text is not valid UTF-8")
)

// pageMarker matches the lines extractPDF puts before each page.
var pageMarker = regexp.MustCompile(`(?m)^--- Page \d+ ---$`)

// Error reports an extraction failure for a single file.
type Error struct {
	Filename string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Filename, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type extractor func(data []byte) (string, error)

var extractors = map[string]extractor{
	".pdf":      extractPDF,
	".docx":     extractDOCX,
	".pptx":     extractPPTX,
	".md":       extractMarkdown,
	".markdown": extractMarkdown,
	".txt":      extractPlain,
}

// Supported reports whether filename has an extension Extract can handle.
func Supported(filename string) bool {
	_, ok := extractors[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Extensions lists the supported extensions, including the leading dot.
func Extensions() []string {
	return []string{".pdf", ".docx", ".pptx", ".md", ".markdown", ".txt"}
}

// Extract returns the text content of data, choosing the parser by filename extension.
// Every failure is an *Error; unknown extensions wrap ErrUnsupported.
func Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	fn, ok := extractors[ext]
	if !ok {
		return "", &Error{Filename: filename, Err: fmt.Errorf("%w: %q", ErrUnsupported, ext)}
	}

	text, err := fn(data)
	if err != nil {
		return "", &Error{Filename: filename, Err: err}
	}
	if !utf8.ValidString(text) {
		return "", &Error{Filename: filename, Err: ErrInvalidEncoding}
	}
	return text, nil
}

// HasText reports whether text holds anything besides whitespace and page
// markers. A scanned PDF without a text layer yields markers only.
func HasText(text string) bool {
	return strings.TrimSpace(pageMarker.ReplaceAllString(text, "")) != ""
}

func extractPlain(data []byte) (string, error) {
	return string(data), nil
}
