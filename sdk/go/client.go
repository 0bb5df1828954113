package colonysdk

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

// Client is a minimal colony HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	Address     string // legacy X-Address identity, used when no token is set
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Event represents a log entry. The context shape depends on the type.
type Event struct {
	ID               string         `json:"id"`
	Type             string         `json:"type"`
	CreatedAt        string         `json:"created_at"`
	InitiatorAddress string         `json:"initiator_address"`
	SourceID         string         `json:"source_id"`
	SourceType       string         `json:"source_type"`
	Context          map[string]any `json:"context"`
}

// Notification is one entry of the caller's feed.
type Notification struct {
	ID    string `json:"id"`
	Read  bool   `json:"read"`
	Event Event  `json:"event"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Notifications returns the caller's feed, optionally filtered by read state.
func (c *Client) Notifications(ctx context.Context, read *bool) ([]Notification, error) {
	endpoint := "v0/notifications"
	if read != nil {
		endpoint += "?read=" + fmt.Sprint(*read)
	}
	var out []Notification
	err := c.do(ctx, http.MethodGet, endpoint, nil, &out)
	return out, err
}

// MarkNotificationRead marks one notification read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "v0/notifications/"+url.PathEscape(id)+"/read", nil, nil)
}

// MarkAllNotificationsRead clears the caller's unread set.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "v0/notifications/read-all", nil, nil)
}

// SubmissibleLevels returns the level ids the caller may submit to.
func (c *Client) SubmissibleLevels(ctx context.Context, programID string) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "v0/programs/"+url.PathEscape(programID)+"/submissible-levels", nil, &out)
	return out, err
}

// TaskEvents returns a task's history, oldest first.
func (c *Client) TaskEvents(ctx context.Context, taskID string) ([]Event, error) {
	var out []Event
	err := c.do(ctx, http.MethodGet, "v0/tasks/"+url.PathEscape(taskID)+"/events", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.Address != "":
		req.Header.Set("X-Address", c.Address)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
