package lead

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

	"go.uber.org/zap"

	model "github.com/zhouzirui/tgl-chat/backend/internal/model/lead"
)

// ContactPath is where leads are posted relative to the API base.
const ContactPath = "/api/contact"

// UserErrorText is shown when a submission fails for any reason.
const UserErrorText = "Failed to submit your information. Please try again."

var ErrSubmitFailed = errors.New("failed to submit lead")

// Client posts leads to the contact endpoint. Submissions are not retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a submission client for baseURL.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Submit validates and posts l. Any non-2xx answer is ErrSubmitFailed.
func (c *Client) Submit(ctx context.Context, l model.Lead) error {
	l = Normalize(l)
	if err := Validate(l); err != nil {
		return err
	}

	body, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ContactPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build lead request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("lead submission failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("lead submission rejected", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrSubmitFailed, resp.StatusCode)
	}

	c.logger.Info("lead submitted", zap.String("email", l.Email))
	return nil
}
