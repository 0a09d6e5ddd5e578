package internal

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// GenerateCardID creates a unique ID for a card based on timestamp and Danish word
// Format: epochMillis_md5(word)[:8]
func GenerateCardID(danishWord string) string {
	// Get current timestamp in milliseconds
	now := time.Now()
	epochMillis := now.UnixNano() / 1000000

	// Calculate MD5 hash of the word
	hash := md5.Sum([]byte(danishWord))
	hashStr := hex.EncodeToString(hash[:])[:8] // Use first 8 chars of MD5

	// Combine timestamp and hash
	return fmt.Sprintf("%d_%s", epochMillis, hashStr)
}

// SanitizeFilename creates a safe filename stem from a word. HTML tags are
// stripped, runs of whitespace collapse into a single underscore and any
// character that is not a letter, digit, dash or underscore is dropped.
// The Danish letters stay so that words remain recognizable on disk.
func SanitizeFilename(s string) string {
	var b strings.Builder
	pendingGap := false
	for _, r := range StripTags(s) {
		switch {
		case unicode.IsSpace(r):
			pendingGap = b.Len() > 0
		case isFilenameRune(r):
			if pendingGap {
				b.WriteByte('_')
				pendingGap = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StripTags removes HTML markup such as the <b> markers around example words
func StripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isFilenameRune checks if a rune is safe to keep in a filename
func isFilenameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r == '-' || r == '_' || isDanishLetter(r)
}

// isDanishLetter covers the Danish letters outside the ASCII range
func isDanishLetter(r rune) bool {
	switch r {
	case 'æ', 'ø', 'å', 'Æ', 'Ø', 'Å':
		return true
	}
	return false
}
