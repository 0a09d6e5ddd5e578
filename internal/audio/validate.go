package audio

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidateDanishText validates that the input text is usable for Danish speech
func ValidateDanishText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("text cannot be empty")
	}

	hasLetter := false
	for _, r := range text {
		if unicode.In(r, unicode.Latin) {
			hasLetter = true
			break
		}
	}

	if !hasLetter {
		return fmt.Errorf("text must contain Latin letters")
	}

	return nil
}
