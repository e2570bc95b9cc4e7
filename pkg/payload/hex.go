package payload

import (
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// DecodeHex decodes hex text, ignoring any whitespace between the digits.
func DecodeHex(text string) ([]byte, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if len(digits)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string (%d digits)", len(digits))
	}
	result, err := hex.DecodeString(digits)
	if err != nil {
		return nil, fmt.Errorf("non-hexadecimal digit found: %w", err)
	}
	return result, nil
}
