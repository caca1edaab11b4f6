// Package model provides the HTTP client adapter for the external
// detection model service. The service contract is two JSON endpoints:
// POST /v1/predict for deterministic inference and POST /v1/sample for
// one stochastic (dropout-active) pass.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/attest-ml/go-attest/internal/domain"
	"github.com/attest-ml/go-attest/internal/ports"
)

var (
	_ ports.Classifier           = (*HTTPClient)(nil)
	_ ports.StochasticClassifier = (*HTTPClient)(nil)
)

// HTTPClient talks to a remote model server over JSON/HTTP. It is safe
// for concurrent use; the uncertainty estimator issues parallel sample
// calls against it.
type HTTPClient struct {
	baseURL    string
	numClasses int
	client     *http.Client
}

// NewHTTPClient creates a model client for the given base URL.
// numClasses must match the model's probability vector length; timeout
// bounds one inference call and defaults to 10s.
func NewHTTPClient(baseURL string, numClasses int, timeout time.Duration) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("model endpoint cannot be empty")
	}
	if numClasses < 2 {
		return nil, fmt.Errorf("model must expose at least 2 classes, got %d", numClasses)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		numClasses: numClasses,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type inferenceRequest struct {
	Width    int       `json:"width"`
	Height   int       `json:"height"`
	Channels int       `json:"channels"`
	Pixels   []float64 `json:"pixels"`
}

type inferenceResponse struct {
	Probs  []float64 `json:"probs"`
	Logits []float64 `json:"logits,omitempty"`
}

// Predict implements ports.Classifier.
func (c *HTTPClient) Predict(ctx context.Context, img domain.Image) (ports.Prediction, error) {
	resp, err := c.post(ctx, "/v1/predict", img)
	if err != nil {
		return ports.Prediction{}, err
	}
	return ports.Prediction{Probs: resp.Probs, Logits: resp.Logits}, nil
}

// NumClasses implements ports.Classifier.
func (c *HTTPClient) NumClasses() int { return c.numClasses }

// SampleProbs implements ports.StochasticClassifier.
func (c *HTTPClient) SampleProbs(ctx context.Context, img domain.Image) ([]float64, error) {
	resp, err := c.post(ctx, "/v1/sample", img)
	if err != nil {
		return nil, err
	}
	return resp.Probs, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, img domain.Image) (inferenceResponse, error) {
	body, err := json.Marshal(inferenceRequest{
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
		Pixels:   img.Pixels,
	})
	if err != nil {
		return inferenceResponse{}, fmt.Errorf("encoding inference request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return inferenceResponse{}, fmt.Errorf("building inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return inferenceResponse{}, fmt.Errorf("model call %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return inferenceResponse{}, fmt.Errorf("model call %s: status %d: %s",
			path, httpResp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var resp inferenceResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return inferenceResponse{}, fmt.Errorf("decoding model response: %w", err)
	}
	if len(resp.Probs) != c.numClasses {
		return inferenceResponse{}, fmt.Errorf("%w: model returned %d classes, expected %d",
			domain.ErrInvalidShape, len(resp.Probs), c.numClasses)
	}
	return resp, nil
}
