package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"ordkort/internal"
)

// OpenAIProvider implements Provider interface for OpenAI TTS
type OpenAIProvider struct {
	client *openai.Client
	config *Config
}

// NewOpenAIProvider creates a new OpenAI TTS provider
func NewOpenAIProvider(config *Config) (Provider, error) {
	if config.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	return &OpenAIProvider{
		client: openai.NewClient(config.OpenAIKey),
		config: config,
	}, nil
}

// GenerateAudio generates audio using OpenAI TTS
func (p *OpenAIProvider) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	if err := ValidateDanishText(text); err != nil {
		return err
	}

	input := speechInput(text)
	zap.S().Debugf("OpenAI TTS: model %s, voice %s, speed %.2f, input %q",
		p.config.OpenAIModel, p.voice(), p.config.OpenAISpeed, input)

	req := openai.CreateSpeechRequest{
		Model: openai.SpeechModel(p.config.OpenAIModel),
		Input: input,
		Voice: openai.SpeechVoice(p.voice()),
		Speed: p.config.OpenAISpeed,
	}

	// Voice instructions are only understood by the gpt-4o-mini models
	if p.config.OpenAIInstruction != "" && strings.HasPrefix(p.config.OpenAIModel, "gpt-4o-mini") {
		req.Instructions = p.config.OpenAIInstruction
	}

	// Determine response format based on output file extension
	ext := strings.ToLower(filepath.Ext(outputFile))
	switch ext {
	case ".mp3":
		req.ResponseFormat = openai.SpeechResponseFormatMp3
	case ".wav":
		req.ResponseFormat = openai.SpeechResponseFormatWav
	case ".opus":
		req.ResponseFormat = openai.SpeechResponseFormatOpus
	case ".aac":
		req.ResponseFormat = openai.SpeechResponseFormatAac
	case ".flac":
		req.ResponseFormat = openai.SpeechResponseFormatFlac
	default:
		req.ResponseFormat = openai.SpeechResponseFormatMp3
		outputFile += ".mp3"
	}

	response, err := p.client.CreateSpeech(ctx, req)
	if err != nil {
		return fmt.Errorf("OpenAI TTS API error: %w", err)
	}
	defer response.Close()

	// Ensure output directory exists
	dir := filepath.Dir(outputFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	out, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, response)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	if written == 0 {
		return fmt.Errorf("no audio data received from OpenAI")
	}

	return nil
}

func (p *OpenAIProvider) voice() string {
	if p.config.Voice != "" {
		return p.config.Voice
	}
	return "alloy"
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the OpenAI API is accessible
func (p *OpenAIProvider) IsAvailable() error {
	if p.config.OpenAIKey == "" {
		return fmt.Errorf("OpenAI API key not configured")
	}

	// A test API call would use credits, having a key is enough here
	return nil
}

// speechInput cleans generated text for synthesis. The <b></b> markers
// around the target word must never be spoken.
func speechInput(text string) string {
	return strings.TrimSpace(internal.StripTags(text))
}
