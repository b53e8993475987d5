// Package delivery posts parsed notice documents to the downstream web app.
package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgallion1/noticegest/internal/notice"
	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// Format selects the request body encoding.
type Format string

const (
	// FormatForm sends application/x-www-form-urlencoded, one field per key.
	FormatForm Format = "form"
	// FormatJSON sends a flat JSON object.
	FormatJSON Format = "json"
)

// Options configures a Client.
type Options struct {
	URL     string
	Token   string
	Format  Format
	Gzip    bool // JSON bodies only
	Timeout time.Duration
}

// Client sends documents to a single endpoint.
type Client struct {
	opts       Options
	httpClient *http.Client
	Stats      *Stats
}

func NewClient(opts Options) *Client {
	if opts.Format == "" {
		opts.Format = FormatForm
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Client{
		opts: opts,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		Stats: NewStats(time.Hour),
	}
}

// Send posts doc. idempotencyKey, when set, is passed along so the receiver
// can drop repeats. Transport failures and 429/5xx answers come back as
// *RetryableError.
func (c *Client) Send(ctx context.Context, doc notice.Document, idempotencyKey string) error {
	body, contentType, encoding, err := c.encode(doc)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if encoding != "" {
		httpReq.Header.Set("Content-Encoding", encoding)
	}
	if c.opts.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	if idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", idempotencyKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		c.Stats.RecordFailure(elapsed)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RetryableError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.Stats.Record(elapsed)
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil
	}
	c.Stats.RecordFailure(elapsed)
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	return fmt.Errorf("deliver: status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
}

func (c *Client) encode(doc notice.Document) (body []byte, contentType, encoding string, err error) {
	switch c.opts.Format {
	case FormatForm:
		return []byte(doc.Form().Encode()), "application/x-www-form-urlencoded", "", nil
	case FormatJSON:
		body, err = json.Marshal(doc.Strings())
		if err != nil {
			return nil, "", "", fmt.Errorf("marshal document: %w", err)
		}
		if !c.opts.Gzip {
			return body, "application/json", "", nil
		}
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return nil, "", "", fmt.Errorf("compress document: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, "", "", fmt.Errorf("compress document: %w", err)
		}
		return buf.Bytes(), "application/json", "gzip", nil
	default:
		return nil, "", "", fmt.Errorf("unknown delivery format %q", c.opts.Format)
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int // 0 for transport failures
	Message    string
}

func (e *RetryableError) Error() string {
	if e.StatusCode == 0 {
		return "retryable error: " + truncate(e.Message, 200)
	}
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
