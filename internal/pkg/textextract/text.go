package textextract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// decodeText honours UTF-8/UTF-16 byte order marks and falls back to
// Windows-1252 for bytes that are not valid UTF-8.
func decodeText(data []byte) string {
	switch {
	case len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF:
		return string(data[3:])
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		if out, err := decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()); err == nil {
			return out
		}
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		if out, err := decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()); err == nil {
			return out
		}
	}

	if utf8.Valid(data) {
		return string(data)
	}
	if out, err := decodeWith(data, charmap.Windows1252.NewDecoder()); err == nil {
		return out
	}
	return string(data)
}

func decodeWith(data []byte, t transform.Transformer) (string, error) {
	out, _, err := transform.Bytes(t, data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\x00", "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
