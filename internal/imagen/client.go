// Package imagen is the HTTP client for the Imagen generation API. Failures
// are collapsed into three kinds the rest of the system cares about: bad key,
// rejected prompt, provider unavailable.
package imagen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hasanrafi/aistudio/internal/common"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *slog.Logger
}

type GenerateOptions struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
}

type Image struct {
	Data []byte
	Mime string
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "imagen-4.0-generate-001"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Generate runs one prediction and returns the decoded image bytes.
func (c *Client) Generate(ctx context.Context, opts GenerateOptions) (*Image, error) {
	aspectRatio := opts.AspectRatio
	if aspectRatio == "" {
		aspectRatio = "1:1"
	}

	parameters := map[string]any{
		"sampleCount":    1,
		"aspectRatio":    aspectRatio,
		"outputMimeType": "image/jpeg",
	}
	if opts.NegativePrompt != "" {
		parameters["negativePrompt"] = opts.NegativePrompt
	}
	payload := map[string]any{
		"instances":  []map[string]any{{"prompt": opts.Prompt}},
		"parameters": parameters,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	fullURL := fmt.Sprintf("%s/v1beta/models/%s:predict", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", common.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", common.ErrProviderUnavailable, err)
	}

	if resp.StatusCode >= 300 {
		return nil, c.mapError(resp.StatusCode, rawBody)
	}

	var predictResp struct {
		Predictions []struct {
			BytesBase64Encoded string `json:"bytesBase64Encoded"`
			MimeType           string `json:"mimeType"`
		} `json:"predictions"`
	}
	if err := json.Unmarshal(rawBody, &predictResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v (body=%s)", common.ErrProviderUnavailable, err, truncateBody(rawBody))
	}
	if len(predictResp.Predictions) == 0 || predictResp.Predictions[0].BytesBase64Encoded == "" {
		// the API answers 200 with no predictions when the prompt is filtered
		return nil, common.ErrPromptRejected
	}

	data, err := base64.StdEncoding.DecodeString(predictResp.Predictions[0].BytesBase64Encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: decode image bytes: %v", common.ErrProviderUnavailable, err)
	}

	mime := predictResp.Predictions[0].MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	return &Image{Data: data, Mime: mime}, nil
}

func (c *Client) mapError(status int, body []byte) error {
	var apiErr struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	if c.log != nil {
		c.log.Error("imagen request failed", "status", status, "api_status", apiErr.Error.Status, "body", truncateBody(body))
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return common.ErrInvalidAPIKey
	case status == http.StatusBadRequest && strings.Contains(apiErr.Error.Message, "API key"):
		return common.ErrInvalidAPIKey
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrPromptRejected, apiErr.Error.Message)
	default:
		return fmt.Errorf("%w: status=%d body=%s", common.ErrProviderUnavailable, status, truncateBody(body))
	}
}

func truncateBody(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}
