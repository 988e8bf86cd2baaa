// Package dispatch asks the static-hosting repository's CI to pull staged
// derivatives by sending a GitHub repository_dispatch event.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"mediasync/internal/domain"
	"mediasync/internal/infra"
)

const (
	defaultBaseURL   = "https://api.github.com"
	defaultEventType = "sync-thumbnails"
	apiVersion       = "2022-11-28"
)

// Options configures the GitHub dispatch client.
type Options struct {
	Token      string
	Owner      string
	Repo       string
	BaseURL    string
	EventType  string
	HTTPClient *http.Client
	Logger     *infra.Logger
	Now        func() time.Time
}

// Event is the sync request sent to the external CI.
type Event struct {
	Source       domain.SyncSource
	PendingCount int
}

// Receipt identifies an accepted dispatch.
type Receipt struct {
	DispatchID  string
	Source      domain.SyncSource
	TriggeredAt time.Time
}

// Dispatcher sends a single sync event.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event) (*Receipt, error)
}

// Error carries the HTTP status of a rejected dispatch and a remediation
// hint. It unwraps to domain.ErrDispatchRepoNotFound or domain.ErrDispatchFailed.
type Error struct {
	StatusCode int
	Hint       string
	Body       string
	kind       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("dispatch: github responded %d", e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.kind }

// Client posts repository_dispatch events. It never retries.
type Client struct {
	token      string
	owner      string
	repo       string
	baseURL    string
	eventType  string
	httpClient *http.Client
	logger     infra.Logger
	now        func() time.Time
}

type dispatchRequest struct {
	EventType     string        `json:"event_type"`
	ClientPayload clientPayload `json:"client_payload"`
}

type clientPayload struct {
	TriggeredAt  string `json:"triggered_at"`
	Source       string `json:"source"`
	DispatchID   string `json:"dispatch_id"`
	PendingCount int    `json:"pending_count"`
}

type githubError struct {
	Message string `json:"message"`
}

// NewClient builds a client. Missing credentials are reported by Dispatch,
// not here, so the service can start without them.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	eventType := strings.TrimSpace(opts.EventType)
	if eventType == "" {
		eventType = defaultEventType
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Client{
		token:      strings.TrimSpace(opts.Token),
		owner:      strings.TrimSpace(opts.Owner),
		repo:       strings.TrimSpace(opts.Repo),
		baseURL:    baseURL,
		eventType:  eventType,
		httpClient: httpClient,
		logger:     infra.LoggerOrDiscard(opts.Logger),
		now:        now,
	}
}

// MissingSettings names the unset configuration keys.
func (c *Client) MissingSettings() []string {
	var missing []string
	if c.token == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if c.owner == "" {
		missing = append(missing, "GITHUB_REPO_OWNER")
	}
	if c.repo == "" {
		missing = append(missing, "GITHUB_REPO_NAME")
	}
	return missing
}

// Dispatch sends one repository_dispatch event.
func (c *Client) Dispatch(ctx context.Context, ev Event) (*Receipt, error) {
	if missing := c.MissingSettings(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: set %s", domain.ErrDispatchNotConfigured, strings.Join(missing, ", "))
	}
	source := ev.Source
	if source == "" {
		source = domain.SyncSourceManual
	}

	receipt := &Receipt{DispatchID: uuid.NewString(), Source: source, TriggeredAt: c.now().UTC()}
	body, err := json.Marshal(dispatchRequest{
		EventType: c.eventType,
		ClientPayload: clientPayload{
			TriggeredAt:  receipt.TriggeredAt.Format(time.RFC3339),
			Source:       string(source),
			DispatchID:   receipt.DispatchID,
			PendingCount: ev.PendingCount,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dispatch: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/repos/%s/%s/dispatches", c.baseURL, c.owner, c.repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("dispatch: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.logger.Info().
			Str("dispatch_id", receipt.DispatchID).
			Str("source", string(source)).
			Str("repository", c.owner+"/"+c.repo).
			Int("pending", ev.PendingCount).
			Msg("dispatch: repository_dispatch accepted")
		return receipt, nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	dispatchErr := &Error{StatusCode: resp.StatusCode, Body: errorMessage(raw), kind: domain.ErrDispatchFailed}
	switch resp.StatusCode {
	case http.StatusNotFound:
		dispatchErr.kind = domain.ErrDispatchRepoNotFound
		dispatchErr.Hint = fmt.Sprintf("check that %s/%s exists and that the token has the repo scope", c.owner, c.repo)
	case http.StatusUnauthorized, http.StatusForbidden:
		dispatchErr.Hint = "check that GITHUB_TOKEN is valid and allowed to create repository dispatch events"
	case http.StatusUnprocessableEntity:
		dispatchErr.Hint = "github rejected the event payload"
	}
	c.logger.Error().Err(dispatchErr).Str("source", string(source)).Msg("dispatch: repository_dispatch rejected")
	return nil, dispatchErr
}

func errorMessage(raw []byte) string {
	var detail githubError
	if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
		return detail.Message
	}
	return strings.TrimSpace(string(raw))
}

var _ Dispatcher = (*Client)(nil)
