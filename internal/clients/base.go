package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const HeaderRequestID = "X-Request-ID"

type BreakerSettings struct {
	FailThreshold uint32
	OpenTimeout   time.Duration
}

// Client is a named upstream with a base URL, a request timeout and a circuit breaker.
// 5xx responses count as breaker failures and are returned as *TransportError.
type Client struct {
	Name    string
	BaseURL *url.URL
	HTTP    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

func NewClient(name, baseURL string, timeout time.Duration, bs BreakerSettings, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid %s base url %q: %w", name, baseURL, err)
	}
	threshold := bs.FailThreshold
	if threshold == 0 {
		threshold = 5
	}
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    name,
		Timeout: bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("upstream", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return &Client{
		Name:    name,
		BaseURL: u,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
	}, nil
}

// Do sends body (if non-nil) as JSON. The caller owns the returned response body.
func (c *Client) Do(ctx context.Context, method, path string, headers http.Header, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request: %w", c.Name, err)
		}
		payload = b
	}

	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		req, err := c.newRequest(ctx, method, path, headers, payload)
		if err != nil {
			return nil, err
		}
		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			drain(resp)
			return nil, &TransportError{Service: c.Name, StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &TransportError{Service: c.Name, Err: err}
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, headers http.Header, payload []byte) (*http.Request, error) {
	u := c.BaseURL.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}
	for k, vv := range headers {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if rid := middleware.GetReqID(ctx); rid != "" {
		req.Header.Set(HeaderRequestID, rid)
	}
	return req, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
