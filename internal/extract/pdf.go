package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the text of every non-empty page as "[Page N]\n<text>",
// pages separated by a blank line.
func extractPDF(content []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	var parts []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Page %d]\n%s", i, text))
	}
	return strings.Join(parts, "\n\n"), nil
}

// pdfProperties reads the page count and the trailer's Info dictionary.
func pdfProperties(content []byte) (Properties, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Properties{}, fmt.Errorf("open PDF: %w", err)
	}
	info := r.Trailer().Key("Info")
	return Properties{
		Title:     strings.TrimSpace(info.Key("Title").Text()),
		Author:    strings.TrimSpace(info.Key("Author").Text()),
		Keywords:  strings.TrimSpace(info.Key("Keywords").Text()),
		PageCount: r.NumPage(),
	}, nil
}
