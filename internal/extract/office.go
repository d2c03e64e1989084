package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

const maxXMLPart = 64 << 20

// extractDOCX returns the text runs of word/document.xml separated by spaces.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open docx: %w", err)
	}

	f, err := zr.Open("word/document.xml")
	if err != nil {
		return "", fmt.Errorf("docx has no document part: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	parts, err := xmlText(io.LimitReader(f, maxXMLPart))
	if err != nil {
		return "", err
	}
	return strings.Join(parts, " "), nil
}

// extractPPTX returns the trimmed text of every slide in slide order, one run per line.
func extractPPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pptx: %w", err)
	}

	var slides []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && path.Ext(f.Name) == ".xml" {
			slides = append(slides, f)
		}
	}
	sort.SliceStable(slides, func(i, j int) bool {
		return slideNumber(slides[i].Name) < slideNumber(slides[j].Name)
	})

	var lines []string
	for _, f := range slides {
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", f.Name, err)
		}
		parts, err := xmlText(io.LimitReader(rc, maxXMLPart))
		_ = rc.Close()
		if err != nil {
			return "", fmt.Errorf("%s: %w", f.Name, err)
		}
		lines = append(lines, parts...)
	}
	return strings.Join(lines, "\n"), nil
}

// slideNumber parses N from ppt/slides/slideN.xml; unparseable names sort last.
func slideNumber(name string) int {
	base := strings.TrimSuffix(path.Base(name), ".xml")
	n, err := strconv.Atoi(strings.TrimPrefix(base, "slide"))
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

// xmlText returns every non-blank character data run in document order.
func xmlText(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var parts []string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return parts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("invalid xml: %w", err)
		}
		if cd, ok := tok.(xml.CharData); ok {
			if s := strings.TrimSpace(string(cd)); s != "" {
				parts = append(parts, s)
			}
		}
	}
}
