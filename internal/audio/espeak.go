package audio

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ESpeakConfig holds configuration for espeak-ng audio generation
type ESpeakConfig struct {
	Voice     string // Voice variant (e.g., "da", "da+m1", "da+f1")
	Speed     int    // Speech speed in words per minute (default: 150)
	Pitch     int    // Pitch adjustment, 0 to 99 (default: 50)
	Amplitude int    // Volume/amplitude, 0 to 200 (default: 100)
	WordGap   int    // Gap between words in 10ms units (default: 0)
}

// DefaultConfig returns the default configuration for the Danish voice
func DefaultConfig() *ESpeakConfig {
	return &ESpeakConfig{
		Voice:     "da",
		Speed:     150,
		Pitch:     50,
		Amplitude: 100,
		WordGap:   0,
	}
}

// ESpeak provides an interface to the espeak-ng text-to-speech engine
type ESpeak struct {
	config *ESpeakConfig
}

// New creates a new ESpeak instance with the given configuration
func New(config *ESpeakConfig) (*ESpeak, error) {
	// Check if espeak-ng is installed
	if err := checkESpeakInstalled(); err != nil {
		return nil, err
	}

	if config == nil {
		config = DefaultConfig()
	}

	return &ESpeak{config: config}, nil
}

// GenerateAudio generates a WAV file for the given Danish text
func (e *ESpeak) GenerateAudio(text string, outputFile string) error {
	if text == "" {
		return fmt.Errorf("text cannot be empty")
	}

	// Ensure output directory exists
	dir := filepath.Dir(outputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	args := []string{
		"-v", e.config.Voice,
		"-s", fmt.Sprintf("%d", e.config.Speed),
		"-p", fmt.Sprintf("%d", e.config.Pitch),
		"-a", fmt.Sprintf("%d", e.config.Amplitude),
	}

	if e.config.WordGap > 0 {
		args = append(args, "-g", fmt.Sprintf("%d", e.config.WordGap))
	}

	args = append(args, "-w", outputFile, text)

	cmd := exec.Command("espeak-ng", args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("espeak-ng failed: %w\nOutput: %s", err, string(output))
	}

	return nil
}

// GenerateMP3 generates an MP3 file for the given Danish text
func (e *ESpeak) GenerateMP3(text string, outputFile string) error {
	// espeak-ng only writes WAV, so convert through a temporary file
	tempWAV := strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + "_temp.wav"

	if err := e.GenerateAudio(text, tempWAV); err != nil {
		return err
	}

	if err := ConvertWAVToMP3(tempWAV, outputFile); err != nil {
		os.Remove(tempWAV)
		return err
	}

	return os.Remove(tempWAV)
}

// checkESpeakInstalled verifies that espeak-ng is available on the system
func checkESpeakInstalled() error {
	cmd := exec.Command("espeak-ng", "--version")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("espeak-ng is not installed or not in PATH: %w", err)
	}
	return nil
}

// ListVoices returns the Danish voice variants espeak-ng ships with
func ListVoices() []string {
	return []string{
		"da",    // Default Danish voice
		"da+m1", // Danish male voice 1
		"da+m2", // Danish male voice 2
		"da+m3", // Danish male voice 3
		"da+f1", // Danish female voice 1
		"da+f2", // Danish female voice 2
		"da+f3", // Danish female voice 3
	}
}

// ConvertWAVToMP3 converts a WAV file to MP3 using ffmpeg
func ConvertWAVToMP3(wavFile, mp3File string) error {
	// Check if ffmpeg is installed
	if err := exec.Command("ffmpeg", "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg is not installed or not in PATH: %w", err)
	}

	cmd := exec.Command("ffmpeg", "-i", wavFile, "-acodec", "mp3", "-y", mp3File)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %w\nOutput: %s", err, string(output))
	}

	return nil
}
