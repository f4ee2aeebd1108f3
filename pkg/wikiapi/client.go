// Package wikiapi is a small MediaWiki action API client covering what the
// resolver needs: login, page content, image info and binary downloads.
package wikiapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/papercomputeco/wikifetch/pkg/logger"
	"github.com/papercomputeco/wikifetch/pkg/utils"
)

const (
	// DefaultAPIURL is the English Wikipedia action API.
	DefaultAPIURL = "https://en.wikipedia.org/w/api.php"

	defaultTimeout = 30 * time.Second
)

// Config holds configuration for the wiki client.
type Config struct {
	// APIURL is the api.php endpoint. Defaults to DefaultAPIURL.
	APIURL string

	// UserAgent is sent on every request. Defaults to "wikifetch/<version>".
	UserAgent string

	// Username and Password enable the login step. Anonymous when empty.
	Username string
	Password string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client. Its Jar is replaced when nil.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to a MediaWiki action API.
type Client struct {
	apiURL    string
	userAgent string
	username  string
	password  string

	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger

	loginMu  sync.Mutex
	loggedIn bool
}

// NewClient creates a new wiki API client.
func NewClient(cfg Config) (*Client, error) {
	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if _, err := url.ParseRequestURI(apiURL); err != nil {
		return nil, fmt.Errorf("invalid wiki api url %q: %w", apiURL, err)
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "wikifetch/" + utils.Version
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if httpClient.Jar == nil {
		// The session cookie from login must ride on every later request.
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("creating cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		apiURL:     apiURL,
		userAgent:  userAgent,
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
		breaker:    newBreaker(apiURL, log),
		logger:     log,
	}, nil
}

// APIURL returns the endpoint this client talks to.
func (c *Client) APIURL() string {
	return c.apiURL
}

// newBreaker trips after most of the recent calls failed. Not-found answers
// and caller cancellations are healthy responses, not failures.
func newBreaker(name string, log *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("wiki circuit breaker state changed",
				"api", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
	})
}

// execute runs fn through the circuit breaker. An open breaker surfaces as
// ErrTransport.
func (c *Client) execute(fn func() error) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return err
}

// getJSON issues a GET against the API with params and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, params url.Values, v any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrTransport, err)
	}

	return c.doJSON(req, v)
}

// postJSON issues a form POST against the API and decodes the body into v.
func (c *Client) postJSON(ctx context.Context, form url.Values, v any) error {
	form.Set("format", "json")
	form.Set("formatversion", "2")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: creating request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.doJSON(req, v)
}

func (c *Client) doJSON(req *http.Request, v any) error {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrTransport, ctxErr)
		}
		return fmt.Errorf("%w: sending request: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: wiki returned status %d: %s", ErrResponse, resp.StatusCode, string(body))
	}

	var envelope struct {
		Error *apiError `json:"error"`
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrTransport, err)
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrResponse, err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("%w: %s: %s", ErrResponse, envelope.Error.Code, envelope.Error.Info)
	}

	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrResponse, err)
	}
	return nil
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}
