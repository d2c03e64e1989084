package extract

import (
	"bytes"
	"fmt"
	"strings"

	"rsc.io/pdf"
)

// extractPDF concatenates the text of every page, each introduced by a
// "--- Page N ---" marker. rsc.io/pdf panics on some malformed streams, so
// panics are converted to errors.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		fmt.Fprintf(&b, "\n--- Page %d ---\n", i)
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		b.WriteString(pageText(page.Content().Text))
	}
	return b.String(), nil
}

// pageText joins positioned glyph runs, starting a new line when the baseline moves.
// Runs from fonts without a unicode mapping can carry raw bytes; those become U+FFFD.
func pageText(runs []pdf.Text) string {
	var b strings.Builder
	var lastY float64
	for i, t := range runs {
		if i > 0 && t.Y != lastY {
			b.WriteByte('\n')
		}
		b.WriteString(strings.ToValidUTF8(t.S, "\uFFFD"))
		lastY = t.Y
	}
	return b.String()
}
