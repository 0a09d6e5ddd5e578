// Package testutil holds small filesystem helpers shared by package
// tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteWordList writes a word list file into dir and returns its path
func WriteWordList(t *testing.T, dir string, lines ...string) string {
	t.Helper()

	path := filepath.Join(dir, "words.txt")
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write word list: %v", err)
	}
	return path
}

// WriteAudioFixture writes a small fake WAV file into dir and returns
// its path
func WriteAudioFixture(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	CreateTestFile(t, path, []byte("RIFF"+name))
	return path
}

// CreateTestFile creates a test file with content, making parent
// directories as needed
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path string, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !strings.Contains(string(content), substring) {
		t.Errorf("File %s does not contain expected substring: %q", path, substring)
	}
}
