package entities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/linnemanlabs/sift/internal/intake"
)

const recognizerTimeout = 15 * time.Second

// Client talks to the NER model server over HTTP. The server loads the
// model once and exposes POST /ner and GET /model.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	model string
}

// NewClient creates a recognizer client for the model server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: recognizerTimeout,
		},
	}
}

type recognizeRequest struct {
	Text string `json:"text"`
}

type recognizeResponse struct {
	Model    string `json:"model"`
	Entities []struct {
		Text  string `json:"text"`
		Label string `json:"label"`
		Start int    `json:"start"`
		End   int    `json:"end"`
	} `json:"entities"`
}

type modelResponse struct {
	Model string `json:"model"`
}

// Ping verifies the model server is up and has a model loaded, caching
// the model name. Called once at startup; failure is fatal there.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/model", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: model server returned %d: %s", ErrModelUnavailable, resp.StatusCode, string(body))
	}

	var out modelResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if out.Model == "" {
		return fmt.Errorf("%w: model server reported no loaded model", ErrModelUnavailable)
	}

	c.mu.Lock()
	c.model = out.Model
	c.mu.Unlock()
	return nil
}

// ModelName returns the model name cached by the last successful Ping or
// Recognize call.
func (c *Client) ModelName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Recognize sends text to the model server and returns the recognized
// spans. Any failure is reported as ErrModelUnavailable.
func (c *Client) Recognize(ctx context.Context, text string) ([]intake.Entity, error) {
	body, err := json.Marshal(recognizeRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ner", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrModelUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: model server returned %d: %s", ErrModelUnavailable, resp.StatusCode, string(respBody))
	}

	var out recognizeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: unmarshal response: %v", ErrModelUnavailable, err)
	}

	if out.Model != "" {
		c.mu.Lock()
		c.model = out.Model
		c.mu.Unlock()
	}

	spans := make([]intake.Entity, 0, len(out.Entities))
	for _, e := range out.Entities {
		spans = append(spans, intake.Entity{
			Text:  e.Text,
			Label: e.Label,
			Start: e.Start,
			End:   e.End,
		})
	}
	return spans, nil
}
