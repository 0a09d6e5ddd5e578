package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"ordkort/internal/ratelimit"
)

// Card holds the generated text for one word. The JSON tags match the
// model's response schema and double as the checkpoint file format.
type Card struct {
	Word                string `json:"word"`
	Translation         string `json:"translation"`
	Sentence            string `json:"example_sentence_da"`
	SentenceTranslation string `json:"example_sentence_en"`
}

// Error reports a failed content generation for one word
type Error struct {
	Word string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("content generation for %q: %v", e.Word, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrBadResponse marks a model response that is not the expected strict
// JSON. Retrying would burn quota on the same malformed answer, so it
// classifies as terminal.
var ErrBadResponse = errors.New("model response is not the expected JSON")

const promptHeader = `You are a helpful Danish language assistant.
Your task is to take a Danish word and:
1. Create a simple, natural example sentence in Danish using that word.
2. Provide the English translation of the word.
3. Provide the English translation of the example sentence.
4. The word must include the article and the plural form.

Return your output in strict JSON format, following exactly this structure (use double quotes and proper JSON syntax):
{
  "word": "<the Danish word with the article and the plural form>",
  "translation": "<English translation of the word>",
  "example_sentence_da": "<Danish example sentence>",
  "example_sentence_en": "<English translation of the example sentence>"
}

Important:
- Do NOT include any text before or after the JSON.
- Make the target word in the example sentence BOLD using a <b></b> tag.
- Make the target word in the translation sentence BOLD using a <b></b> tag.
- Do not use any markup apart from the <b></b> tag already mentioned above.
- Do NOT write ` + "```json" + ` before the JSON.
`

// Generator produces cards through the Gemini API
type Generator struct {
	client *genai.Client
	model  string
	style  string
}

// NewGenerator creates a Gemini-backed card generator. style is an
// optional extra instruction appended to the prompt, for example to
// request sentences about a particular topic.
func NewGenerator(ctx context.Context, apiKey, model, style string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Generator{
		client: client,
		model:  model,
		style:  style,
	}, nil
}

// Generate asks the model for the card text of one word
func (g *Generator) Generate(ctx context.Context, word string) (*Card, error) {
	cfg := &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr[int32](0),
		},
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(g.buildPrompt(word)), cfg)
	if err != nil {
		return nil, &Error{Word: word, Err: err}
	}

	raw := resp.Text()
	zap.S().Debugf("Gemini response for %q: %s", word, raw)

	card, err := parseCard(raw)
	if err != nil {
		return nil, &Error{Word: word, Err: err}
	}
	return card, nil
}

func (g *Generator) buildPrompt(word string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	if g.style != "" {
		b.WriteString("- ")
		b.WriteString(g.style)
		b.WriteString("\n")
	}
	b.WriteString("\nInput word: ")
	b.WriteString(word)
	b.WriteString("\n")
	return b.String()
}

// parseCard decodes a model response into a Card. Anything beyond the
// documented schema fails: unknown fields, missing fields, text around
// the JSON object.
func parseCard(raw string) (*Card, error) {
	dec := json.NewDecoder(strings.NewReader(strings.TrimSpace(raw)))
	dec.DisallowUnknownFields()

	var card Card
	if err := dec.Decode(&card); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrBadResponse)
	}

	var missing []string
	if card.Word == "" {
		missing = append(missing, "word")
	}
	if card.Translation == "" {
		missing = append(missing, "translation")
	}
	if card.Sentence == "" {
		missing = append(missing, "example_sentence_da")
	}
	if card.SentenceTranslation == "" {
		missing = append(missing, "example_sentence_en")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing fields %s", ErrBadResponse, strings.Join(missing, ", "))
	}

	return &card, nil
}

// Classify maps content generation failures onto the retry policy.
// HTTP 429 means throttled, server side and network trouble is worth a
// retry, everything else including malformed responses is terminal.
func Classify(err error) ratelimit.Class {
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
