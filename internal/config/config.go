// Package config resolves the settings for a flashcard run.
//
// Settings come from three layers with the usual viper precedence:
// command line flags, the config file (~/.ordkort.yaml by default) and
// built-in defaults. The resolved Settings value is passed around
// explicitly, nothing below the cli package reads viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Settings holds the resolved configuration for a single run
type Settings struct {
	WordsFile        string `mapstructure:"words_file"`
	DeckName         string `mapstructure:"deck_name"`
	ModelName        string `mapstructure:"model_name"`
	ReverseModelName string `mapstructure:"reverse_model_name"`
	AudioDir         string `mapstructure:"audio_dir"`
	CheckpointFile   string `mapstructure:"checkpoint_file"`

	SkipExistingAudio bool `mapstructure:"skip_existing_audio"`
	TestMode          bool `mapstructure:"test_mode"`
	SentenceAudio     bool `mapstructure:"sentence_audio"`
	ReverseCards      bool `mapstructure:"reverse_cards"`
	RetryFailed       bool `mapstructure:"retry_failed"`

	// TTSDelay and RateLimitCooldown are in seconds, matching the
	// config file keys tts_delay and rate_limit_cooldown.
	TTSDelay          float64 `mapstructure:"tts_delay"`
	RateLimitCooldown float64 `mapstructure:"rate_limit_cooldown"`
	MaxAttempts       int     `mapstructure:"max_attempts"`

	ContentModel string `mapstructure:"content_model"`
	StylePrompt  string `mapstructure:"style_prompt"`

	Audio AudioSettings `mapstructure:"audio"`
	Anki  AnkiSettings  `mapstructure:"anki"`
}

// AudioSettings configures the speech synthesis provider
type AudioSettings struct {
	Provider         string `mapstructure:"provider"`          // "gemini", "openai" or "espeak"
	FallbackProvider string `mapstructure:"fallback_provider"` // empty disables the fallback
	Voice            string `mapstructure:"voice"`             // empty picks the provider default
	Language         string `mapstructure:"language"`
	Format           string `mapstructure:"format"` // "wav" or "mp3"

	OpenAIKey   string  `mapstructure:"openai_key"`
	OpenAIModel string  `mapstructure:"openai_model"`
	OpenAISpeed float64 `mapstructure:"openai_speed"`
}

// AnkiSettings configures the AnkiConnect endpoint
type AnkiSettings struct {
	URL string `mapstructure:"url"`
}

// Default returns the built-in configuration
func Default() *Settings {
	return &Settings{
		WordsFile:        "./words.txt",
		DeckName:         "Danish vocab",
		ModelName:        "Danish",
		ReverseModelName: "Danish Reverse",
		AudioDir:         "./audio",
		CheckpointFile:   "./checkpoint.json",

		SentenceAudio: true,

		TTSDelay:          6.5,
		RateLimitCooldown: 20,
		MaxAttempts:       3,

		ContentModel: "gemini-flash-lite-latest",

		Audio: AudioSettings{
			Provider:    "gemini",
			Language:    "da-DK",
			Format:      "wav",
			OpenAIModel: "gpt-4o-mini-tts",
			OpenAISpeed: 1.0,
		},
		Anki: AnkiSettings{
			URL: "http://127.0.0.1:8765",
		},
	}
}

// SetDefaults registers the built-in defaults with viper so that config
// file values and flags override them in the usual order
func SetDefaults() {
	d := Default()

	viper.SetDefault("words_file", d.WordsFile)
	viper.SetDefault("deck_name", d.DeckName)
	viper.SetDefault("model_name", d.ModelName)
	viper.SetDefault("reverse_model_name", d.ReverseModelName)
	viper.SetDefault("audio_dir", d.AudioDir)
	viper.SetDefault("checkpoint_file", d.CheckpointFile)
	viper.SetDefault("skip_existing_audio", d.SkipExistingAudio)
	viper.SetDefault("test_mode", d.TestMode)
	viper.SetDefault("sentence_audio", d.SentenceAudio)
	viper.SetDefault("reverse_cards", d.ReverseCards)
	viper.SetDefault("retry_failed", d.RetryFailed)
	viper.SetDefault("tts_delay", d.TTSDelay)
	viper.SetDefault("rate_limit_cooldown", d.RateLimitCooldown)
	viper.SetDefault("max_attempts", d.MaxAttempts)
	viper.SetDefault("content_model", d.ContentModel)
	viper.SetDefault("style_prompt", d.StylePrompt)
	viper.SetDefault("audio.provider", d.Audio.Provider)
	viper.SetDefault("audio.fallback_provider", d.Audio.FallbackProvider)
	viper.SetDefault("audio.voice", d.Audio.Voice)
	viper.SetDefault("audio.language", d.Audio.Language)
	viper.SetDefault("audio.format", d.Audio.Format)
	viper.SetDefault("audio.openai_model", d.Audio.OpenAIModel)
	viper.SetDefault("audio.openai_speed", d.Audio.OpenAISpeed)
	viper.SetDefault("anki.url", d.Anki.URL)
}

// Resolve unmarshals the current viper state into a Settings value
func Resolve() (*Settings, error) {
	s := Default()
	if err := viper.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks settings that would otherwise fail deep inside a run
func (s *Settings) Validate() error {
	switch s.Audio.Provider {
	case "gemini", "openai", "espeak":
	default:
		return fmt.Errorf("unknown audio provider: %s", s.Audio.Provider)
	}

	switch s.Audio.FallbackProvider {
	case "", "gemini", "openai", "espeak":
	default:
		return fmt.Errorf("unknown audio provider: %s", s.Audio.FallbackProvider)
	}

	switch s.Audio.Format {
	case "wav", "mp3":
	default:
		return fmt.Errorf("unsupported audio format: %s (use wav or mp3)", s.Audio.Format)
	}

	if s.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", s.MaxAttempts)
	}
	if s.TTSDelay < 0 {
		return fmt.Errorf("tts_delay must not be negative, got %g", s.TTSDelay)
	}
	if s.RateLimitCooldown < 0 {
		return fmt.Errorf("rate_limit_cooldown must not be negative, got %g", s.RateLimitCooldown)
	}
	return nil
}

// TTSDelayDuration returns the minimum spacing between provider calls
func (s *Settings) TTSDelayDuration() time.Duration {
	return time.Duration(s.TTSDelay * float64(time.Second))
}

// CooldownDuration returns the pause applied after a rate limited call
func (s *Settings) CooldownDuration() time.Duration {
	return time.Duration(s.RateLimitCooldown * float64(time.Second))
}

// Save writes the current resolved configuration to path so the next
// run starts from the same settings
func Save(path string) error {
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
