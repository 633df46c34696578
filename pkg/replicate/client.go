package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBody = 4 << 10

type Client struct {
	BaseURL      string
	APIToken     string
	ModelVersion string
	HTTPClient   *http.Client
}

func NewClient(baseURL, apiToken, modelVersion string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIToken:     apiToken,
		ModelVersion: modelVersion,
		HTTPClient:   &http.Client{Timeout: timeout},
	}
}

// Submit creates a prediction for the source image. The returned prediction's ID is the job handle.
// The provider is asked to call callbackURL on start and on completion.
func (c *Client) Submit(ctx context.Context, sourceImageURL, prompt, callbackURL string) (*Prediction, error) {
	if c.APIToken == "" {
		return nil, ErrProviderUnavailable
	}

	payload := createPredictionRequest{
		Version: c.ModelVersion,
		Input: predictionInput{
			Image:  sourceImageURL,
			Prompt: prompt,
		},
	}
	if callbackURL != "" {
		payload.Webhook = callbackURL
		payload.WebhookEventsFilter = []string{"start", "completed"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var prediction Prediction
	if err := c.do(ctx, http.MethodPost, "/v1/predictions", bytes.NewReader(body), &prediction); err != nil {
		return nil, err
	}
	if prediction.ID == "" {
		return nil, &ProviderError{StatusCode: http.StatusOK, Body: "prediction without id"}
	}
	return &prediction, nil
}

// FetchStatus polls the provider for the current state of a prediction.
func (c *Client) FetchStatus(ctx context.Context, predictionID string) (*Prediction, error) {
	if c.APIToken == "" {
		return nil, ErrProviderUnavailable
	}

	var prediction Prediction
	path := "/v1/predictions/" + url.PathEscape(predictionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &prediction); err != nil {
		return nil, err
	}
	return &prediction, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("replicate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ProviderError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
