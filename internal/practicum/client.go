package practicum

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	logx "hwbot/pkg/logx"
)

// Config configures the status API client.
type Config struct {
	Endpoint string
	Token    string
	// Timeout bounds one request; 0 leaves it to the caller's context.
	Timeout time.Duration
}

// Client fetches homework statuses. It is safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
	now  func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client (tests, proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithClock overrides the clock used for a zero cursor.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

func NewClient(cfg Config, log logx.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("practicum token is empty")
	}
	u, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("practicum endpoint %q is not an absolute url", cfg.Endpoint)
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg.Endpoint = u.String()
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
		now:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Fetch requests statuses changed since fromDate (unix seconds; 0 means now)
// and returns the decoded JSON body as-is. Shape checks are CheckResponse's job.
func (c *Client) Fetch(ctx context.Context, fromDate int64) (any, error) {
	if fromDate == 0 {
		fromDate = c.now().Unix()
	}

	u, _ := url.Parse(c.cfg.Endpoint)
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(fromDate, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, errors.Wrapf(ErrRequest, "build request: %v", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrRequest, "GET %s: %v", u.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrRequest, "read body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrUnexpectedStatus, "GET %s: %d %s", u.Path, resp.StatusCode, snippet(body))
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}

	c.log.Info("status request ok",
		logx.Int64("from_date", fromDate),
		logx.Int("http", resp.StatusCode),
		logx.Duration("took", time.Since(start)),
	)
	return v, nil
}

// snippet keeps at most 200 runes of a response body for error messages.
func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if utf8.RuneCountInString(s) <= 200 {
		return s
	}
	return string([]rune(s)[:200]) + "..."
}
