package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Gemini TTS returns raw little-endian PCM at 24kHz, 16-bit mono
const (
	geminiSampleRate = 24000
	geminiChannels   = 1
	geminiBitDepth   = 16
)

// GeminiProvider implements Provider interface for Gemini TTS
type GeminiProvider struct {
	client *genai.Client
	config *Config
}

// NewGeminiProvider creates a new Gemini TTS provider
func NewGeminiProvider(config *Config) (Provider, error) {
	if config.GeminiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		config: config,
	}, nil
}

// GenerateAudio generates audio using Gemini TTS
func (p *GeminiProvider) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	if err := ValidateDanishText(text); err != nil {
		return err
	}

	input := speechInput(text)
	zap.S().Debugf("Gemini TTS: model %s, voice %s, input %q",
		p.config.GeminiModel, p.voice(), input)

	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: p.voice(),
				},
			},
			LanguageCode: p.config.Language,
		},
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.config.GeminiModel, genai.Text(input), cfg)
	if err != nil {
		return fmt.Errorf("Gemini TTS API error: %w", err)
	}

	pcm, err := pcmFromResponse(resp)
	if err != nil {
		return err
	}

	// Gemini only returns raw PCM, so MP3 goes through a temporary WAV
	ext := strings.ToLower(filepath.Ext(outputFile))
	switch ext {
	case ".wav":
		return writeWAV(outputFile, pcm)
	case ".mp3":
		tempWAV := strings.TrimSuffix(outputFile, ext) + "_temp.wav"
		if err := writeWAV(tempWAV, pcm); err != nil {
			return err
		}
		if err := ConvertWAVToMP3(tempWAV, outputFile); err != nil {
			os.Remove(tempWAV)
			return err
		}
		return os.Remove(tempWAV)
	default:
		return writeWAV(outputFile+".wav", pcm)
	}
}

func (p *GeminiProvider) voice() string {
	if p.config.Voice != "" {
		return p.config.Voice
	}
	return "Kore"
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks if the Gemini API key is configured
func (p *GeminiProvider) IsAvailable() error {
	if p.config.GeminiKey == "" {
		return fmt.Errorf("Gemini API key not configured")
	}
	return nil
}

// pcmFromResponse extracts the inline audio bytes from a TTS response
func pcmFromResponse(resp *genai.GenerateContentResponse) ([]byte, error) {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, fmt.Errorf("no audio data received from Gemini")
}

// writeWAV wraps raw PCM samples in a RIFF/WAVE header and writes the file
func writeWAV(path string, pcm []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	byteRate := geminiSampleRate * geminiChannels * geminiBitDepth / 8
	blockAlign := geminiChannels * geminiBitDepth / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(geminiChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(geminiSampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(geminiBitDepth))
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return nil
}
