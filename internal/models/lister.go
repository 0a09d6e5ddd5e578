package models

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"ordkort/internal/audio"
)

// Lister prints the speech and chat models usable with the configured
// providers
type Lister struct {
	apiKey string
	client *openai.Client
}

// NewLister creates a model lister. apiKey is the OpenAI key, the
// espeak voice list needs no key.
func NewLister(apiKey string) *Lister {
	return &Lister{
		apiKey: apiKey,
		client: openai.NewClient(apiKey),
	}
}

// ListAvailableModels prints the espeak-ng voices and, when an OpenAI
// API key is configured, the TTS and chat models available to that key.
// Gemini models are not listed, they are configured directly through
// content_model and audio.voice.
func (l *Lister) ListAvailableModels() error {
	fmt.Println("espeak-ng Danish voices:")
	for _, voice := range audio.ListVoices() {
		fmt.Printf("  %s\n", voice)
	}

	fmt.Println("\nAvailable OpenAI Models:")
	if l.apiKey == "" {
		fmt.Println("  OpenAI API key not found. Set OPENAI_API_KEY environment variable or configure audio.openai_key in .ordkort.yaml")
		return nil
	}

	ctx := context.Background()
	models, err := l.client.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	ttsModels := []string{}
	chatModels := []string{}

	for _, model := range models.Models {
		modelID := model.ID
		if strings.Contains(modelID, "tts") || strings.Contains(modelID, "audio") {
			ttsModels = append(ttsModels, modelID)
		} else if strings.Contains(modelID, "gpt") || strings.Contains(modelID, "chat") {
			chatModels = append(chatModels, modelID)
		}
	}

	sort.Strings(ttsModels)
	sort.Strings(chatModels)

	fmt.Println("\nText-to-Speech (TTS) Models:")
	if len(ttsModels) == 0 {
		fmt.Println("  No TTS models found")
	} else {
		for _, model := range ttsModels {
			fmt.Printf("  %s\n", model)
		}
	}

	fmt.Println("\nChat Models:")
	if len(chatModels) > 10 {
		// Show only relevant models
		relevantModels := []string{}
		for _, model := range chatModels {
			if strings.Contains(model, "gpt-4") || strings.Contains(model, "gpt-3.5") {
				relevantModels = append(relevantModels, model)
			}
		}
		for _, model := range relevantModels {
			fmt.Printf("  %s\n", model)
		}
		fmt.Printf("  ... and %d more models\n", len(chatModels)-len(relevantModels))
	} else {
		for _, model := range chatModels {
			fmt.Printf("  %s\n", model)
		}
	}

	return nil
}
