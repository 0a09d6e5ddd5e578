package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// apiVersion is the AnkiConnect protocol version this client speaks
const apiVersion = 6

// DefaultURL is the standard AnkiConnect listen address
const DefaultURL = "http://127.0.0.1:8765"

// DeliveryError reports a failed AnkiConnect interaction. Connectivity
// means Anki itself is unreachable, which makes every later delivery
// pointless until the user restarts it.
type DeliveryError struct {
	Action       string
	Connectivity bool
	Err          error
}

func (e *DeliveryError) Error() string {
	if e.Connectivity {
		return fmt.Sprintf("anki unreachable during %s: %v", e.Action, e.Err)
	}
	return fmt.Sprintf("anki %s failed: %v", e.Action, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Client talks to a local AnkiConnect endpoint. Transport failures feed
// a circuit breaker so a dead Anki stops a run quickly instead of
// timing out once per word.
type Client struct {
	url     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewClient creates a client for the given AnkiConnect URL. An empty
// URL selects the default local endpoint.
func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}

	settings := gobreaker.Settings{
		Name: "ankiconnect",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			zap.S().Warnf("AnkiConnect circuit %s -> %s", from, to)
		},
	}

	return &Client{
		url:     url,
		http:    &http.Client{Timeout: 30 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

type request struct {
	Action  string      `json:"action"`
	Version int         `json:"version"`
	Params  interface{} `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// invoke performs one AnkiConnect action and decodes its result into
// result when non-nil. Application errors reported by Anki do not trip
// the breaker, only transport failures do.
func (c *Client) invoke(ctx context.Context, action string, params, result interface{}) error {
	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, action, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &DeliveryError{Action: action, Connectivity: true, Err: err}
		}
		return err
	}

	envelope := v.(*response)
	if envelope.Error != nil {
		return &DeliveryError{Action: action, Err: errors.New(*envelope.Error)}
	}

	if result == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return &DeliveryError{Action: action, Err: fmt.Errorf("malformed result: %w", err)}
	}
	return nil
}

func (c *Client) post(ctx context.Context, action string, params interface{}) (*response, error) {
	payload, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return nil, &DeliveryError{Action: action, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &DeliveryError{Action: action, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &DeliveryError{Action: action, Connectivity: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &DeliveryError{Action: action, Connectivity: true, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var envelope response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &DeliveryError{Action: action, Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &envelope, nil
}

// Version returns the AnkiConnect protocol version, proving the
// endpoint is reachable
func (c *Client) Version(ctx context.Context) (int, error) {
	var version int
	if err := c.invoke(ctx, "version", nil, &version); err != nil {
		return 0, err
	}
	return version, nil
}

// MediaDirPath returns Anki's collection.media directory, falling back
// to the platform default location when the call fails
func (c *Client) MediaDirPath(ctx context.Context) (string, error) {
	var dir string
	err := c.invoke(ctx, "getMediaDirPath", nil, &dir)
	if err == nil && dir != "" {
		return dir, nil
	}
	if err != nil {
		zap.S().Debugf("getMediaDirPath failed, using platform default: %v", err)
	}

	return defaultMediaDir()
}

func defaultMediaDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Roaming", "Anki2", "User 1", "collection.media"), nil
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Anki2", "User 1", "collection.media"), nil
	default:
		return filepath.Join(home, ".local", "share", "Anki2", "User 1", "collection.media"), nil
	}
}

// FindNotes returns the note IDs matching an Anki search query
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	params := map[string]string{"query": query}
	if err := c.invoke(ctx, "findNotes", params, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// Note is the payload for the addNote action
type Note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Options   NoteOptions       `json:"options"`
	Tags      []string          `json:"tags"`
}

// NoteOptions holds per-note creation flags
type NoteOptions struct {
	AllowDuplicate bool `json:"allowDuplicate"`
}

// AddNote creates a note and returns its ID
func (c *Client) AddNote(ctx context.Context, note Note) (int64, error) {
	if note.Tags == nil {
		note.Tags = []string{}
	}

	var id int64
	params := map[string]interface{}{"note": note}
	if err := c.invoke(ctx, "addNote", params, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateNoteFields replaces the fields of an existing note
func (c *Client) UpdateNoteFields(ctx context.Context, noteID int64, fields map[string]string) error {
	params := map[string]interface{}{
		"note": map[string]interface{}{
			"id":     noteID,
			"fields": fields,
		},
	}
	return c.invoke(ctx, "updateNoteFields", params, nil)
}
