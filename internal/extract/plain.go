package extract

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// extractPlain decodes text files. UTF-8 is tried first, then UTF-16 when a
// byte order mark is present, then Latin-1, which accepts any byte sequence.
func extractPlain(content []byte) (string, error) {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		content = content[3:]
	}
	if utf8.Valid(content) {
		return string(content), nil
	}
	if s, ok := decodeUTF16(content); ok {
		return s, nil
	}
	return decodeLatin1(content), nil
}

func decodeUTF16(b []byte) (string, bool) {
	if len(b) < 2 || len(b)%2 != 0 {
		return "", false
	}
	var bigEndian bool
	switch {
	case b[0] == 0xFF && b[1] == 0xFE:
	case b[0] == 0xFE && b[1] == 0xFF:
		bigEndian = true
	default:
		return "", false
	}
	b = b[2:]
	units := make([]uint16, len(b)/2)
	for i := range units {
		if bigEndian {
			units[i] = uint16(b[2*i])<<8 | uint16(b[2*i+1])
		} else {
			units[i] = uint16(b[2*i+1])<<8 | uint16(b[2*i])
		}
	}
	return string(utf16.Decode(units)), true
}

func decodeLatin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(rune(c))
	}
	return sb.String()
}
