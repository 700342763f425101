package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/brainnova/brainnova-score/internal/scoring"
)

const (
	ScorePath      = "/api/v1/brainnova-score"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 1 << 20
)

// Client asks an external scoring service for a precomputed score.
type Client interface {
	RequestScore(ctx context.Context, req scoring.Request) (*scoring.ScoreResult, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// RequestScore posts req to the scoring service. Every failure is a
// *Failure matching ErrRemoteUnavailable or ErrRemoteInvalidResponse.
func (c *HTTPClient) RequestScore(ctx context.Context, req scoring.Request) (*scoring.ScoreResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, unavailable(eris.Wrap(err, "encode request"), 0)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ScorePath, bytes.NewReader(payload))
	if err != nil {
		return nil, unavailable(err, 0)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, unavailable(err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, unavailable(err, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, unavailable(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), resp.StatusCode)
	}

	return DecodeResponse(body, req)
}
