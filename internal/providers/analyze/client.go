// Package analyze wraps the external clothing-analysis HTTP service. The
// service inspects an uploaded blob and drafts product metadata; its internal
// model is opaque to this process.
package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"wardrobe/internal/infra"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultReadTimeout    = 120 * time.Second

	maxErrorBodyBytes = 2048
)

// Options controls how the analysis client is configured.
type Options struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	HTTPClient     *http.Client
	Logger         *infra.Logger
}

// Client calls the analysis service. The connect timeout is short while the
// read timeout stays long: the call may involve model inference.
type Client struct {
	baseURL     string
	readTimeout time.Duration
	httpClient  *http.Client
	logger      *infra.Logger
}

// Request identifies the blob to analyze plus an optional user hint.
type Request struct {
	Bucket    string         `json:"bucket"`
	ObjectKey string         `json:"object_key"`
	Hint      map[string]any `json:"hint,omitempty"`
}

// Result is the drafted product metadata. Every field may be absent in the
// wire response; Attributes and Tags are defaulted to empty containers and
// Raw preserves the response body verbatim for the job audit trail.
type Result struct {
	TitleSuggested        string         `json:"title_suggested"`
	CategoryID            string         `json:"category_id"`
	CategoryPathSuggested string         `json:"category_path_suggested"`
	Attributes            map[string]any `json:"attributes"`
	Tags                  []string       `json:"tags"`
	DescriptionDraft      string         `json:"description_draft"`
	ProductType           string         `json:"product_type"`
	Colors                []string       `json:"colors"`
	MaterialGuess         string         `json:"material_guess"`
	Confidence            float64        `json:"confidence"`

	Raw json.RawMessage `json:"-"`
}

// NewClient creates a configured analysis client.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("analyze: base url is required")
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				ForceAttemptHTTP2:   true,
				TLSHandshakeTimeout: connectTimeout,
			},
		}
	}
	return &Client{
		baseURL:     baseURL,
		readTimeout: readTimeout,
		httpClient:  httpClient,
		logger:      opts.Logger,
	}, nil
}

// Analyze posts the blob reference to /v1/analyze and decodes the draft
// metadata. Timeouts, non-2xx responses and malformed bodies all surface as
// errors; the caller decides how to record them.
func (c *Client) Analyze(ctx context.Context, req Request) (*Result, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("analyze: encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/analyze", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("analyze: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analyze: call service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("analyze: service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("analyze: read response: %w", err)
	}

	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("analyze: decode response: %w", err)
	}
	result.Raw = json.RawMessage(body)
	if result.Attributes == nil {
		result.Attributes = map[string]any{}
	}
	if result.Tags == nil {
		result.Tags = []string{}
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("bucket", req.Bucket).
			Str("object_key", req.ObjectKey).
			Dur("elapsed", time.Since(started)).
			Msg("analyze: response received")
	}
	return &result, nil
}
