package refdatasvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/cascade"
)

var endpoint = "/v1/refdata/"

type Options struct {
	BaseURL string
	Token   string // sent as a bearer token
	// Timeout bounds each attempt. Zero means no timeout.
	Timeout time.Duration
	// RetryAttempts is the total number of attempts; transport errors and 5xx responses are retried.
	RetryAttempts int
	// RetryBackoff is waited after the first failed attempt, twice as long after the second and so on.
	RetryBackoff time.Duration
	HTTPClient   *http.Client
	Logger       core.Logger
}

// StatusError is a non 2xx response.
type StatusError struct {
	Level      string
	StatusCode int
	Body       string
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("refdata: %s options: status %d: %s", err.Level, err.StatusCode, strings.TrimSpace(err.Body))
}

func (err *StatusError) temporary() bool {
	return err.StatusCode >= http.StatusInternalServerError || err.StatusCode == http.StatusTooManyRequests
}

// Client fetches options from a remote dashboard API. It is a cascade.Source serving any level.
type Client struct {
	opts Options
	rest *rest.Client
}

var _ cascade.Source = (*Client)(nil)

func NewClient(opts Options) *Client {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Client{
		opts: opts,
		rest: &rest.Client{HTTPClient: opts.HTTPClient},
	}
}

func (c *Client) Fetcher(level string) (cascade.FetchFunc, bool) {
	if !core.IsLevelKey(level) {
		return nil, false
	}
	return func(ctx context.Context, parent string) ([]cascade.Option, error) {
		return c.Options(ctx, level, parent)
	}, true
}

// Options requests the options of `level` under `parent`.
func (c *Client) Options(ctx context.Context, level, parent string) ([]cascade.Option, error) {
	req := rest.Request{
		Method:  rest.Get,
		BaseURL: c.opts.BaseURL + endpoint + url.PathEscape(level),
		Headers: map[string]string{"Accept": "application/json"},
	}
	if c.opts.Token != "" {
		req.Headers["Authorization"] = "Bearer " + c.opts.Token
	}
	if parent != "" {
		req.QueryParams = map[string]string{"parent": parent}
	}

	var err error
	for attempt := 1; attempt <= c.opts.RetryAttempts; attempt++ {
		var options []cascade.Option
		if options, err = c.send(ctx, level, req); err == nil {
			return options, nil
		}
		if serr, ok := err.(*StatusError); ok && !serr.temporary() {
			return nil, err
		}
		if attempt == c.opts.RetryAttempts {
			break
		}
		if c.opts.Logger != nil {
			c.opts.Logger.Debug(
				fmt.Sprintf("refdata: retrying %s options", level),
				map[string]interface{}{"attempt": attempt, "parent": parent, "error": err.Error()},
			)
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "refdata: %s options", level)
		case <-time.After(time.Duration(attempt) * c.opts.RetryBackoff):
		}
	}
	return nil, errors.Wrapf(err, "refdata: %d attempts", c.opts.RetryAttempts)
}

func (c *Client) send(ctx context.Context, level string, req rest.Request) ([]cascade.Option, error) {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	res, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return nil, errors.Wrapf(err, "refdata: %s options", level)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{Level: level, StatusCode: res.StatusCode, Body: res.Body}
	}

	var options []cascade.Option
	if err := json.Unmarshal([]byte(res.Body), &options); err != nil {
		return nil, errors.Wrapf(err, "refdata: decoding %s options", level)
	}
	return options, nil
}
