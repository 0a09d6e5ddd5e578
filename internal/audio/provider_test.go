package audio

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"ordkort/internal/ratelimit"
)

// mockProvider implements Provider interface for testing
type mockProvider struct {
	name          string
	generateErr   error
	availableErr  error
	generateCalls int
}

func (m *mockProvider) GenerateAudio(ctx context.Context, text string, outputFile string) error {
	m.generateCalls++
	return m.generateErr
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) IsAvailable() error {
	return m.availableErr
}

func TestDefaultProviderConfig(t *testing.T) {
	config := DefaultProviderConfig()

	if config.Provider != "gemini" {
		t.Errorf("Expected provider 'gemini', got '%s'", config.Provider)
	}

	if config.Language != "da-DK" {
		t.Errorf("Expected language 'da-DK', got '%s'", config.Language)
	}

	if config.GeminiModel != "gemini-2.5-flash-preview-tts" {
		t.Errorf("Expected Gemini model 'gemini-2.5-flash-preview-tts', got '%s'", config.GeminiModel)
	}

	if config.OpenAIModel != "gpt-4o-mini-tts" {
		t.Errorf("Expected OpenAI model 'gpt-4o-mini-tts', got '%s'", config.OpenAIModel)
	}

	if config.OpenAISpeed != 1.0 {
		t.Errorf("Expected OpenAI speed 1.0, got %f", config.OpenAISpeed)
	}

	if config.FallbackProvider != "" {
		t.Errorf("Expected no fallback provider, got '%s'", config.FallbackProvider)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "nil config uses defaults",
			config:  nil,
			wantErr: true,
			errMsg:  "Gemini API key is required",
		},
		{
			name: "gemini provider without key",
			config: &Config{
				Provider: "gemini",
			},
			wantErr: true,
			errMsg:  "Gemini API key is required",
		},
		{
			name: "openai provider without key",
			config: &Config{
				Provider: "openai",
			},
			wantErr: true,
			errMsg:  "OpenAI API key is required",
		},
		{
			name: "unknown provider",
			config: &Config{
				Provider: "unknown",
			},
			wantErr: true,
			errMsg:  "unknown audio provider: unknown",
		},
		{
			name: "fallback equal to primary",
			config: &Config{
				Provider:         "gemini",
				GeminiKey:        "test-key",
				FallbackProvider: "gemini",
			},
			wantErr: true,
			errMsg:  "fallback provider must differ from gemini",
		},
		{
			name: "fallback without its key",
			config: &Config{
				Provider:         "gemini",
				GeminiKey:        "test-key",
				FallbackProvider: "openai",
			},
			wantErr: true,
			errMsg:  "fallback provider: OpenAI API key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != nil && err.Error() != tt.errMsg {
				t.Errorf("NewProvider() error = %v, want %v", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestNewProviderWithFallbackConfigured(t *testing.T) {
	config := &Config{
		Provider:         "gemini",
		GeminiKey:        "gemini-key",
		FallbackProvider: "openai",
		OpenAIKey:        "openai-key",
		OpenAIModel:      "gpt-4o-mini-tts",
		OpenAISpeed:      1.0,
	}

	provider, err := NewProvider(config)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	expected := "gemini (fallback: openai)"
	if provider.Name() != expected {
		t.Errorf("Name() = %v, want %v", provider.Name(), expected)
	}
}

func TestProviderWithFallback(t *testing.T) {
	primary := &mockProvider{name: "primary"}
	fallback := &mockProvider{name: "fallback"}

	provider := NewProviderWithFallback(primary, fallback)

	// Test successful primary
	ctx := context.Background()
	err := provider.GenerateAudio(ctx, "test", "output.wav")
	if err != nil {
		t.Errorf("GenerateAudio() unexpected error: %v", err)
	}
	if primary.generateCalls != 1 {
		t.Errorf("Expected 1 primary call, got %d", primary.generateCalls)
	}
	if fallback.generateCalls != 0 {
		t.Errorf("Expected 0 fallback calls, got %d", fallback.generateCalls)
	}

	// Test primary failure, fallback success
	primary.generateErr = errors.New("primary failed")
	primary.generateCalls = 0

	err = provider.GenerateAudio(ctx, "test", "output.wav")
	if err != nil {
		t.Errorf("GenerateAudio() unexpected error: %v", err)
	}
	if primary.generateCalls != 1 {
		t.Errorf("Expected 1 primary call, got %d", primary.generateCalls)
	}
	if fallback.generateCalls != 1 {
		t.Errorf("Expected 1 fallback call, got %d", fallback.generateCalls)
	}

	// Test both fail
	fallback.generateErr = errors.New("fallback failed")
	primary.generateCalls = 0
	fallback.generateCalls = 0

	err = provider.GenerateAudio(ctx, "test", "output.wav")
	if err == nil {
		t.Error("GenerateAudio() expected error when both providers fail")
	}
}

func TestProviderWithFallbackCanceledContext(t *testing.T) {
	primary := &mockProvider{name: "primary", generateErr: context.Canceled}
	fallback := &mockProvider{name: "fallback"}

	provider := NewProviderWithFallback(primary, fallback)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := provider.GenerateAudio(ctx, "test", "output.wav")
	if err == nil {
		t.Fatal("GenerateAudio() expected error with canceled context")
	}
	if fallback.generateCalls != 0 {
		t.Errorf("Expected 0 fallback calls after cancellation, got %d", fallback.generateCalls)
	}
}

func TestProviderWithFallbackName(t *testing.T) {
	primary := &mockProvider{name: "primary"}
	fallback := &mockProvider{name: "fallback"}

	provider := NewProviderWithFallback(primary, fallback)

	expected := "primary (fallback: fallback)"
	if provider.Name() != expected {
		t.Errorf("Name() = %v, want %v", provider.Name(), expected)
	}
}

func TestProviderWithFallbackIsAvailable(t *testing.T) {
	primary := &mockProvider{name: "primary"}
	fallback := &mockProvider{name: "fallback"}

	provider := NewProviderWithFallback(primary, fallback)

	// Both available
	err := provider.IsAvailable()
	if err != nil {
		t.Errorf("IsAvailable() unexpected error: %v", err)
	}

	// Primary unavailable, fallback available
	primary.availableErr = errors.New("primary unavailable")
	err = provider.IsAvailable()
	if err != nil {
		t.Errorf("IsAvailable() unexpected error when fallback available: %v", err)
	}

	// Primary available, fallback unavailable
	primary.availableErr = nil
	fallback.availableErr = errors.New("fallback unavailable")
	err = provider.IsAvailable()
	if err != nil {
		t.Errorf("IsAvailable() unexpected error when primary available: %v", err)
	}

	// Both unavailable
	primary.availableErr = errors.New("primary unavailable")
	err = provider.IsAvailable()
	if err == nil {
		t.Error("IsAvailable() expected error when both providers unavailable")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ratelimit.Class
	}{
		{
			name: "openai rate limit",
			err:  &openai.APIError{HTTPStatusCode: 429, Message: "rate limit"},
			want: ratelimit.ClassThrottled,
		},
		{
			name: "openai server error",
			err:  &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"},
			want: ratelimit.ClassTransient,
		},
		{
			name: "openai bad request",
			err:  &openai.APIError{HTTPStatusCode: 400, Message: "bad voice"},
			want: ratelimit.ClassTerminal,
		},
		{
			name: "gemini rate limit",
			err:  genai.APIError{Code: 429, Message: "quota exceeded"},
			want: ratelimit.ClassThrottled,
		},
		{
			name: "gemini server error",
			err:  genai.APIError{Code: 500, Message: "internal"},
			want: ratelimit.ClassTransient,
		},
		{
			name: "gemini invalid argument",
			err:  genai.APIError{Code: 400, Message: "invalid"},
			want: ratelimit.ClassTerminal,
		},
		{
			name: "wrapped gemini rate limit",
			err:  fmt.Errorf("Gemini TTS API error: %w", genai.APIError{Code: 429}),
			want: ratelimit.ClassThrottled,
		},
		{
			name: "wrapped inside stage error",
			err:  &Error{Word: "hund", File: "hund.wav", Err: &openai.APIError{HTTPStatusCode: 429}},
			want: ratelimit.ClassThrottled,
		},
		{
			name: "network error",
			err:  &net.DNSError{Err: "no such host", Name: "api.openai.com"},
			want: ratelimit.ClassTransient,
		},
		{
			name: "deadline exceeded",
			err:  fmt.Errorf("synthesis: %w", context.DeadlineExceeded),
			want: ratelimit.ClassTransient,
		},
		{
			name: "validation failure",
			err:  errors.New("text cannot be empty"),
			want: ratelimit.ClassTerminal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}
