package ghostmail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flemzord/ghostmail/internal/provider"
	"github.com/flemzord/ghostmail/pkg/mail"
)

const maxResponseBytes = 4 << 20 // 4 MiB

const statusSuccess = "success"

// Client is a thin HTTP wrapper around the temp-mail API. Every endpoint
// takes its parameters as path segments and ends with the API key.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	maxAttempts int
	backoff     time.Duration

	// sleep waits between attempts; swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

var (
	_ provider.Provider      = (*Client)(nil)
	_ provider.HealthChecker = (*Client)(nil)
)

// NewClient creates a client. A nil httpClient uses a 15s timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		http:        httpClient,
		maxAttempts: defaultMaxAttempts,
		backoff:     500 * time.Millisecond,
		sleep:       sleepCtx,
	}
}

// envelope is the shape every endpoint answers with.
type envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type domainsData struct {
	Domains mail.Domains `json:"domains"`
}

type messagesData struct {
	Messages []mail.RawMessage `json:"messages"`
}

// messageData accepts the single-message payload as either an array
// (what the API sends) or a bare object.
type messageData []mail.RawMessage

func (m *messageData) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*m = nil
		return nil
	case strings.HasPrefix(trimmed, "{"):
		var one mail.RawMessage
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*m = messageData{one}
		return nil
	default:
		var many []mail.RawMessage
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*m = many
		return nil
	}
}

// Domains implements provider.Provider.
func (c *Client) Domains(ctx context.Context) ([]string, error) {
	data, err := do[domainsData](ctx, c, http.MethodGet, "domains", "domains")
	if err != nil {
		return nil, err
	}
	return data.Domains, nil
}

// CreateEmail implements provider.Provider.
func (c *Client) CreateEmail(ctx context.Context) (mail.Account, error) {
	return do[mail.Account](ctx, c, http.MethodPost, "create", "email", "create")
}

// ChangeEmail implements provider.Provider.
func (c *Client) ChangeEmail(ctx context.Context, token, username, domain string) (mail.Account, error) {
	return do[mail.Account](ctx, c, http.MethodPost, "change", "email", "change", token, username, domain)
}

// DeleteEmail implements provider.Provider.
func (c *Client) DeleteEmail(ctx context.Context, token string) error {
	_, err := do[json.RawMessage](ctx, c, http.MethodPost, "delete_email", "email", "delete", token)
	return err
}

// Messages implements provider.Provider.
func (c *Client) Messages(ctx context.Context, token string) ([]mail.RawMessage, error) {
	data, err := do[messagesData](ctx, c, http.MethodGet, "messages", "messages", token)
	if err != nil {
		return nil, err
	}
	return data.Messages, nil
}

// Message implements provider.Provider.
func (c *Client) Message(ctx context.Context, id string) (mail.RawMessage, error) {
	data, err := do[messageData](ctx, c, http.MethodGet, "message", "message", id)
	if err != nil {
		return mail.RawMessage{}, err
	}
	if len(data) == 0 {
		return mail.RawMessage{}, fmt.Errorf("ghostmail: message %s: %w", id, provider.ErrNotFound)
	}
	return data[0], nil
}

// DeleteMessage implements provider.Provider.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	_, err := do[json.RawMessage](ctx, c, http.MethodPost, "delete_message", "message", "delete", id)
	return err
}

// HealthCheck implements provider.HealthChecker with the cheapest read.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.Domains(ctx)
	return err
}

// endpoint joins the escaped path segments and the API key onto the base URL.
func (c *Client) endpoint(segments ...string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(s))
	}
	b.WriteByte('/')
	b.WriteString(url.PathEscape(c.apiKey))
	return b.String()
}

// do calls one endpoint and decodes the data field of the envelope.
// 429 and 5xx responses and transport failures are retried with
// exponential backoff, honouring Retry-After when present.
func do[T any](ctx context.Context, c *Client, method, op string, segments ...string) (T, error) {
	var zero T
	target := c.endpoint(segments...)
	backoff := c.backoff

	var lastErr error
	for attempt := range c.maxAttempts {
		if attempt > 0 {
			if err := c.sleep(ctx, backoff); err != nil {
				return zero, err
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return zero, fmt.Errorf("ghostmail: create %s request: %w", op, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			// The URL carries the API key; keep it out of the message.
			lastErr = fmt.Errorf("ghostmail: %s request failed: %s: %w", op, transportCause(err), provider.ErrProviderDown)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("ghostmail: read %s response: %w", op, provider.ErrProviderDown)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Message: errorMessage(body)}
			if !retryable(resp.StatusCode) {
				return zero, apiErr
			}
			lastErr = apiErr
			if ra := retryAfter(resp.Header.Get("Retry-After")); ra > 0 {
				backoff = ra
			}
			continue
		}

		var env envelope[T]
		if err := json.Unmarshal(body, &env); err != nil {
			return zero, fmt.Errorf("ghostmail: decode %s response: %w", op, err)
		}
		if env.Status != statusSuccess {
			msg := env.Message
			if msg == "" {
				msg = fmt.Sprintf("status %q", env.Status)
			}
			return zero, fmt.Errorf("ghostmail: %s: %s: %w", op, msg, ErrUpstream)
		}
		return env.Data, nil
	}

	return zero, lastErr
}

// errorMessage extracts a message from an error body when it is JSON.
func errorMessage(body []byte) string {
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return ""
}

// transportCause strips the request URL from a transport error.
func transportCause(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return "transport error"
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
