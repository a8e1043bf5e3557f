package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/slack-go/slack"

	"github.com/spektr-org/spektr-retail/artifact"
	"github.com/spektr-org/spektr-retail/engine"
)

// ============================================================================
// SLACK DELIVERER — Web API external upload flow via slack-go
// ============================================================================
// UploadFileV2 runs the three steps:
//   1. files.getUploadURLExternal → upload_url, file_id
//   2. POST bytes to upload_url
//   3. files.completeUploadExternal → share into the channel
// ============================================================================

const (
	slackService     = "slack"
	slackHTTPTimeout = 30 * time.Second
)

// SlackDeliverer uploads artifacts to Slack channels with a bot token.
type SlackDeliverer struct {
	token   string
	baseURL string
	client  *http.Client
	api     *slack.Client
	logger  *slog.Logger
}

// Compile-time check.
var _ Deliverer = (*SlackDeliverer)(nil)

// SlackOption configures a SlackDeliverer.
type SlackOption func(*SlackDeliverer)

// WithSlackBaseURL overrides the API base URL.
func WithSlackBaseURL(u string) SlackOption {
	return func(s *SlackDeliverer) { s.baseURL = strings.TrimRight(u, "/") + "/" }
}

// WithSlackHTTPClient replaces the HTTP client.
func WithSlackHTTPClient(c *http.Client) SlackOption {
	return func(s *SlackDeliverer) { s.client = c }
}

// WithSlackLogger sets the logger.
func WithSlackLogger(l *slog.Logger) SlackOption {
	return func(s *SlackDeliverer) { s.logger = l }
}

// NewSlack creates a SlackDeliverer.
func NewSlack(token string, opts ...SlackOption) *SlackDeliverer {
	s := &SlackDeliverer{
		token:  token,
		client: &http.Client{Timeout: slackHTTPTimeout},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	apiOpts := []slack.Option{slack.OptionHTTPClient(s.client)}
	if s.baseURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(s.baseURL))
	}
	s.api = slack.New(token, apiOpts...)
	return s
}

// Deliver uploads a to the Slack channel ID target.
func (s *SlackDeliverer) Deliver(ctx context.Context, a artifact.Artifact, target string) error {
	if s.token == "" {
		return &engine.UpstreamServiceError{Service: slackService, Message: "no bot token configured"}
	}
	if len(a.Data) == 0 {
		return &engine.UpstreamServiceError{Service: slackService, Message: "empty artifact"}
	}

	file, err := s.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:         bytes.NewReader(a.Data),
		FileSize:       len(a.Data),
		Filename:       a.Filename,
		Title:          a.Title,
		Channel:        target,
		InitialComment: fmt.Sprintf("📊 %s\n%s", a.Title, a.Summary),
	})
	if err != nil {
		return slackError(err)
	}

	s.logger.Info("report delivered to slack", "channel", target, "file_id", file.ID, "bytes", len(a.Data))
	return nil
}

// slackError maps slack-go failures onto UpstreamServiceError. API-level
// errors ("ok": false) arrive with HTTP 200.
func slackError(err error) error {
	var apiErr slack.SlackErrorResponse
	if errors.As(err, &apiErr) {
		return &engine.UpstreamServiceError{Service: slackService, Status: http.StatusOK, Message: apiErr.Err, Err: err}
	}
	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) {
		return &engine.UpstreamServiceError{Service: slackService, Status: statusErr.Code, Message: statusErr.Status, Err: err}
	}
	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		return &engine.UpstreamServiceError{Service: slackService, Status: http.StatusTooManyRequests, Message: "rate limited", Err: err}
	}
	return &engine.UpstreamServiceError{Service: slackService, Message: "upload failed", Err: err}
}
