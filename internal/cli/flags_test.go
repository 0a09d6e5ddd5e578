package cli

import (
	"reflect"
	"testing"
)

func TestNewFlags(t *testing.T) {
	flags := NewFlags()

	// Test default values
	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"WordsFile", flags.WordsFile, "./words.txt"},
		{"DeckName", flags.DeckName, "Danish vocab"},
		{"NoteModel", flags.NoteModel, "Danish"},
		{"AudioDir", flags.AudioDir, "./audio"},
		{"CheckpointFile", flags.CheckpointFile, "./checkpoint.json"},
		{"TTSDelay", flags.TTSDelay, 6.5},
		{"AudioProvider", flags.AudioProvider, "gemini"},
		{"AudioFormat", flags.AudioFormat, "wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.expected) {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.expected)
			}
		})
	}

	// Test boolean defaults (should be false)
	boolTests := []struct {
		name  string
		value bool
	}{
		{"SkipExistingAudio", flags.SkipExistingAudio},
		{"TestMode", flags.TestMode},
		{"ReverseCards", flags.ReverseCards},
		{"RetryFailed", flags.RetryFailed},
		{"ListModels", flags.ListModels},
		{"Archive", flags.Archive},
		{"SaveConfig", flags.SaveConfig},
		{"Verbose", flags.Verbose},
	}

	for _, tt := range boolTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != false {
				t.Errorf("%s = %v, want false", tt.name, tt.value)
			}
		})
	}

	// Test string defaults (should be empty)
	stringTests := []struct {
		name  string
		value string
	}{
		{"CfgFile", flags.CfgFile},
		{"Voice", flags.Voice},
	}

	for _, tt := range stringTests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Errorf("%s = %v, want empty string", tt.name, tt.value)
			}
		})
	}
}

func TestFlagsStructure(t *testing.T) {
	// Test that Flags struct has all expected fields
	flags := &Flags{}
	flagsType := reflect.TypeOf(*flags)

	expectedFields := []string{
		"CfgFile", "WordsFile", "DeckName", "NoteModel", "AudioDir",
		"CheckpointFile", "TTSDelay",
		"SkipExistingAudio", "TestMode", "ReverseCards", "RetryFailed",
		"ListModels", "Archive", "SaveConfig", "Verbose",
		"AudioProvider", "AudioFormat", "Voice",
	}

	for _, fieldName := range expectedFields {
		t.Run("has_field_"+fieldName, func(t *testing.T) {
			if _, ok := flagsType.FieldByName(fieldName); !ok {
				t.Errorf("Flags struct missing field: %s", fieldName)
			}
		})
	}
}
