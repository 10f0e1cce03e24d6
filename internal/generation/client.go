package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Literal texts shown in place of a letter.
const (
	NoLetterMessage = "No cover letter returned."
	FailureMessage  = "Something went wrong while generating the cover letter. Please try again."
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 4 << 20

// ErrGeneration wraps every transport, status and decoding failure.
var ErrGeneration = errors.New("cover letter generation failed")

// Client posts generation requests to the remote service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	validate   *validator.Validate
}

// NewClient constructs a Client for endpoint. A zero timeout means requests
// wait for as long as the service takes.
func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("generator endpoint is required")
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
	}, nil
}

// Generate sends one request and returns the coverLetter field of the reply.
// A successful reply without the field yields NoLetterMessage.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if err := c.validate.Struct(req); err != nil {
		return "", fmt.Errorf("%w: invalid request: %w", ErrGeneration, err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("%w: encode: %w", ErrGeneration, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", ErrGeneration, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: http status %d: %s", ErrGeneration, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode: %w", ErrGeneration, err)
	}
	if parsed.CoverLetter == "" {
		return NoLetterMessage, nil
	}
	return parsed.CoverLetter, nil
}
