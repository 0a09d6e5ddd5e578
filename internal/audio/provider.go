package audio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"ordkort/internal/ratelimit"
)

// Provider defines the interface for text-to-speech providers
type Provider interface {
	// GenerateAudio generates audio from text and saves it to the specified file
	GenerateAudio(ctx context.Context, text string, outputFile string) error

	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured and available
	IsAvailable() error
}

// Config holds common configuration for audio providers
type Config struct {
	Provider string // Provider name: "gemini", "openai" or "espeak"
	Voice    string // Voice for the selected provider, empty picks its default
	Language string // Synthesis locale, e.g. "da-DK"

	// FallbackProvider names a second provider to try when the
	// selected one fails. Empty disables the fallback.
	FallbackProvider string

	// Gemini-specific settings
	GeminiKey   string
	GeminiModel string

	// OpenAI-specific settings
	OpenAIKey         string
	OpenAIModel       string  // "tts-1", "tts-1-hd", or "gpt-4o-mini-tts"
	OpenAISpeed       float64 // 0.25 to 4.0
	OpenAIInstruction string  // Voice instructions for gpt-4o-mini-tts model
}

// DefaultProviderConfig returns default configuration
func DefaultProviderConfig() *Config {
	return &Config{
		Provider:          "gemini",
		Language:          "da-DK",
		GeminiModel:       "gemini-2.5-flash-preview-tts",
		OpenAIModel:       "gpt-4o-mini-tts",
		OpenAISpeed:       1.0,
		OpenAIInstruction: "You are speaking Danish (dansk). Pronounce the Danish text with authentic Danish phonetics. Speak slowly and clearly for language learners.",
	}
}

// NewProvider creates the appropriate audio provider based on configuration
func NewProvider(config *Config) (Provider, error) {
	if config == nil {
		config = DefaultProviderConfig()
	}

	primary, err := newProvider(config, config.Provider)
	if err != nil {
		return nil, err
	}

	if config.FallbackProvider == "" {
		return primary, nil
	}
	if config.FallbackProvider == config.Provider {
		return nil, fmt.Errorf("fallback provider must differ from %s", config.Provider)
	}

	fallback, err := newProvider(config, config.FallbackProvider)
	if err != nil {
		return nil, fmt.Errorf("fallback provider: %w", err)
	}
	return NewProviderWithFallback(primary, fallback), nil
}

func newProvider(config *Config, name string) (Provider, error) {
	if name != config.Provider {
		// The configured voice belongs to the selected provider
		c := *config
		c.Voice = ""
		config = &c
	}

	switch name {
	case "gemini":
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiProvider(config)

	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAIProvider(config)

	case "espeak":
		espeakConfig := DefaultConfig()
		if config.Voice != "" {
			espeakConfig.Voice = config.Voice
		}
		return NewESpeakProvider(espeakConfig)

	default:
		return nil, fmt.Errorf("unknown audio provider: %s", name)
	}
}

// ProviderWithFallback wraps a primary provider with a fallback option
type ProviderWithFallback struct {
	primary  Provider
	fallback Provider
}

// NewProviderWithFallback creates a provider that falls back to secondary if primary fails
func NewProviderWithFallback(primary, fallback Provider) Provider {
	return &ProviderWithFallback{
		primary:  primary,
		fallback: fallback,
	}
}

// GenerateAudio tries the primary provider first and falls back on error.
// A canceled context is never retried on the fallback.
func (p *ProviderWithFallback) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	err := p.primary.GenerateAudio(ctx, text, outputFile)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}

	zap.S().Warnf("Audio provider %s failed: %v, falling back to %s",
		p.primary.Name(), err, p.fallback.Name())
	return p.fallback.GenerateAudio(ctx, text, outputFile)
}

// Name returns the provider name
func (p *ProviderWithFallback) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", p.primary.Name(), p.fallback.Name())
}

// IsAvailable checks if at least one provider is available
func (p *ProviderWithFallback) IsAvailable() error {
	primaryErr := p.primary.IsAvailable()
	if primaryErr == nil {
		return nil
	}

	fallbackErr := p.fallback.IsAvailable()
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("both providers unavailable: primary=%v, fallback=%v",
		primaryErr, fallbackErr)
}

// Classify maps a synthesis failure onto a retry class. Rate limits are
// throttled, server side and network trouble is transient, local
// failures such as rejected text or a missing espeak binary are
// terminal.
func Classify(err error) ratelimit.Class {
	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		switch {
		case oaiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return ratelimit.ClassThrottled
		case oaiErr.HTTPStatusCode >= 500:
			return ratelimit.ClassTransient
		default:
			return ratelimit.ClassTerminal
		}
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return ratelimit.ClassThrottled
		case apiErr.Code >= 500:
			return ratelimit.ClassTransient
		default:
			return ratelimit.ClassTerminal
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ratelimit.ClassTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ratelimit.ClassTransient
	}

	return ratelimit.ClassTerminal
}
