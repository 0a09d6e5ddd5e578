// Package words loads the flat word list that drives a run.
package words

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// SourceError reports that the word list itself is unusable. It is fatal
// for the whole run, unlike failures of individual words.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("word list %s: %v", e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Load reads a word list file and returns the words in file order.
// One word or phrase per line, surrounding whitespace trimmed, empty
// lines and lines starting with '#' skipped. A word appearing more than
// once keeps its first position, later occurrences are logged and
// dropped. The trimmed line is the word's identity for checkpointing.
func Load(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}

	var list []string
	seen := make(map[string]int)

	for n, line := range splitLines(string(content)) {
		word := trimSpace(line)
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		if first, ok := seen[word]; ok {
			zap.S().Warnf("Duplicate word %q on line %d, keeping first occurrence from line %d", word, n+1, first)
			continue
		}
		seen[word] = n + 1
		list = append(list, word)
	}

	return list, nil
}

// splitLines splits a string by newlines
func splitLines(s string) []string {
	var lines []string
	current := ""
	for _, r := range s {
		if r == '\n' {
			lines = append(lines, current)
			current = ""
		} else if r != '\r' {
			current += string(r)
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

// trimSpace trims whitespace from string
func trimSpace(s string) string {
	start := 0
	end := len(s)

	// Trim from start
	for start < end && isSpace(rune(s[start])) {
		start++
	}

	// Trim from end
	for end > start && isSpace(rune(s[end-1])) {
		end--
	}

	return s[start:end]
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
