package extract

import (
	"fmt"
	"strings"

	"github.com/lu4p/cat"
)

// extractWithCat handles the formats lu4p/cat detects from content (.odt, .rtf).
func extractWithCat(content []byte) (string, error) {
	text, err := cat.FromBytes(content)
	if err != nil {
		return "", fmt.Errorf("extract with cat: %w", err)
	}
	return strings.TrimSpace(text), nil
}
