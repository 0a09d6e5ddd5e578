package words

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		fileContent string
		want        []string
	}{
		{
			name:        "empty file",
			fileContent: "",
			want:        nil,
		},
		{
			name:        "only whitespace",
			fileContent: "   \n\t\r\n   ",
			want:        nil,
		},
		{
			name: "plain words",
			fileContent: `hund
kat
hus`,
			want: []string{"hund", "kat", "hus"},
		},
		{
			name:        "comments and blanks are skipped",
			fileContent: "hund\n#comment\n\nkat",
			want:        []string{"hund", "kat"},
		},
		{
			name: "whitespace around words",
			fileContent: `
  hund
	kat
hus
`,
			want: []string{"hund", "kat", "hus"},
		},
		{
			name:        "windows line endings",
			fileContent: "hund\r\nkat\r\nhus",
			want:        []string{"hund", "kat", "hus"},
		},
		{
			name:        "duplicates keep first occurrence",
			fileContent: "hund\nkat\nhund\nhus\nkat",
			want:        []string{"hund", "kat", "hus"},
		},
		{
			name:        "duplicate differing only in surrounding whitespace",
			fileContent: "hund\n  hund  \nkat",
			want:        []string{"hund", "kat"},
		},
		{
			name:        "danish letters survive",
			fileContent: "kød\nsmørrebrød\nå",
			want:        []string{"kød", "smørrebrød", "å"},
		},
		{
			name:        "phrases stay intact",
			fileContent: "god dag\nhvad så",
			want:        []string{"god dag", "hvad så"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			tmpFile := filepath.Join(tmpDir, "words.txt")
			err := os.WriteFile(tmpFile, []byte(tt.fileContent), 0644)
			if err != nil {
				t.Fatalf("Failed to create test file: %v", err)
			}

			got, err := Load(tmpFile)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Load() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/words.txt")
	if err == nil {
		t.Fatal("Expected error for non-existent file")
	}

	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Errorf("Expected *SourceError, got %T", err)
	}
	if srcErr.Path != "/nonexistent/words.txt" {
		t.Errorf("Expected error to carry the path, got %s", srcErr.Path)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "unix line endings",
			input: "line1\nline2\nline3",
			want:  []string{"line1", "line2", "line3"},
		},
		{
			name:  "windows line endings",
			input: "line1\r\nline2\r\nline3",
			want:  []string{"line1", "line2", "line3"},
		},
		{
			name:  "mixed line endings",
			input: "line1\nline2\r\nline3",
			want:  []string{"line1", "line2", "line3"},
		},
		{
			name:  "empty string",
			input: "",
			want:  nil,
		},
		{
			name:  "single line no ending",
			input: "single line",
			want:  []string{"single line"},
		},
		{
			name:  "trailing newline",
			input: "line1\nline2\n",
			want:  []string{"line1", "line2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitLines(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitLines() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrimSpace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "no whitespace",
			input: "hej",
			want:  "hej",
		},
		{
			name:  "leading spaces",
			input: "   hej",
			want:  "hej",
		},
		{
			name:  "trailing spaces",
			input: "hej   ",
			want:  "hej",
		},
		{
			name:  "both sides",
			input: "   hej   ",
			want:  "hej",
		},
		{
			name:  "tabs and spaces",
			input: "\t  hej  \t",
			want:  "hej",
		},
		{
			name:  "only whitespace",
			input: "   \t\n\r   ",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trimSpace(tt.input)
			if got != tt.want {
				t.Errorf("trimSpace() = %q, want %q", got, tt.want)
			}
		})
	}
}
