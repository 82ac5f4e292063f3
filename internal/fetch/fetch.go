// Package fetch provides single-attempt HTTP GETs bounded by an explicit timeout.
// The timeout races the response: whichever settles first decides the outcome.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout is the per-request budget used when a Request carries none.
const DefaultTimeout = 6 * time.Second

// DefaultUserAgent is the user agent string for upstream requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; Newsdesk/1.0)"

// Kind classifies why a fetch failed.
type Kind string

const (
	// KindNetwork is a transport failure before a response arrived (DNS, refused, reset).
	KindNetwork Kind = "network"
	// KindTimeout means the timer fired before the body was complete.
	KindTimeout Kind = "timeout"
	// KindAbortedByPeer means the upstream cut the body stream short.
	KindAbortedByPeer Kind = "aborted_by_peer"
	// KindInvalidURL means no request could be built for the URL.
	KindInvalidURL Kind = "invalid_url"
)

// Request describes one upstream call.
type Request struct {
	URL     string
	Timeout time.Duration
}

// Result holds a completed upstream response.
// Body is returned as-is, whatever the status code or content.
type Result struct {
	URL         string
	Body        string
	ContentType string
	StatusCode  int
}

// Error represents a failed fetch.
type Error struct {
	URL     string
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s (%s): %s: %v", e.URL, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s (%s): %s", e.URL, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsTimeout reports whether err is a fetch that ran out of time.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}

// KindOf returns the failure kind carried by err, or "" if err is not a fetch error.
func KindOf(err error) Kind {
	var fetchErr *Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return ""
}

// Options configures the fetcher.
type Options struct {
	UserAgent string
	Headers   map[string]string
	// Transport overrides the round tripper, mostly for tests.
	Transport http.RoundTripper
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		UserAgent: DefaultUserAgent,
	}
}

// Fetcher issues timed GET requests. It holds no per-request state and is safe
// for concurrent use.
type Fetcher struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
}

// New creates a Fetcher. A nil opts uses DefaultOptions.
func New(opts *Options) *Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	// No client-level timeout: the per-request timer in Fetch owns the deadline.
	client := &http.Client{Transport: opts.Transport}
	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		headers:   opts.Headers,
	}
}

type outcome struct {
	result *Result
	err    error
}

// Fetch performs a single GET and settles exactly once: either with the
// complete body, or with an *Error. A timeout cancels the in-flight request
// and always returns KindTimeout, never leaving the caller waiting.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	parsedURL, err := url.Parse(req.URL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     req.URL,
			Kind:    KindInvalidURL,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// One slot so the losing goroutine can always deliver and exit.
	done := make(chan outcome, 1)
	go func() {
		result, err := f.do(reqCtx, req.URL)
		done <- outcome{result: result, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.result, out.err
	case <-timer.C:
		cancel()
		return nil, &Error{
			URL:     req.URL,
			Kind:    KindTimeout,
			Message: fmt.Sprintf("no complete response within %s", timeout),
			Cause:   context.DeadlineExceeded,
		}
	}
}

func (f *Fetcher) do(ctx context.Context, urlStr string) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Kind:    KindInvalidURL,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	for key, value := range f.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Kind:    KindNetwork,
			Message: "HTTP request failed",
			Cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := KindAbortedByPeer
		if ctx.Err() != nil {
			kind = KindNetwork
		}
		return nil, &Error{
			URL:     urlStr,
			Kind:    kind,
			Message: "response body interrupted",
			Cause:   err,
		}
	}

	return &Result{
		URL:         urlStr,
		Body:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}, nil
}
