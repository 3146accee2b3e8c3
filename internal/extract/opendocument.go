package extract

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

// odfContentPath holds the body of every OpenDocument package.
const odfContentPath = "content.xml"

var (
	odfTextBlock = regexp.MustCompile(`(?s)<text:(?:p|h)(?:\s[^>]*)?>(.*?)</text:(?:p|h)>`)
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
)

// extractODF returns the text of every text:p and text:h element in document
// order, one per line. Nested spans are flattened.
func extractODF(content []byte, format string) (string, error) {
	zr, err := openZip(content, format)
	if err != nil {
		return "", err
	}
	data, err := readEntry(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if data == nil {
		return "", fmt.Errorf("extract %s: %s not found", format, odfContentPath)
	}
	var lines []string
	for _, m := range odfTextBlock.FindAllSubmatch(data, -1) {
		line := strings.TrimSpace(html.UnescapeString(xmlTag.ReplaceAllString(string(m[1]), "")))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func extractODP(content []byte) (string, error) { return extractODF(content, "ODP") }

func extractODS(content []byte) (string, error) { return extractODF(content, "ODS") }
