// Package client builds the http.Client handed to the download engine. The
// engine itself never retries a chunk; any retry behavior configured here is
// transport-level policy owned by the caller.
package client

import (
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/rget-dev/rget/pkg/logging"
	"github.com/rget-dev/rget/pkg/version"
)

const (
	retryMinWait     = 100 * time.Millisecond
	retryMaxWait     = 3000 * time.Millisecond // do not backoff further than 3 seconds
	retrySleepJitter = 500                     // additional 0-500ms, multiplied by time.Millisecond in backoffFunc
)

type Options struct {
	// MaxRetries is the number of transport-level retries per request.
	// Zero means a failed request fails its chunk immediately.
	MaxRetries int

	// ConnectTimeout bounds connection establishment. Zero means 5s.
	ConnectTimeout time.Duration

	// UserAgent overrides the default rget/<version> User-Agent header.
	UserAgent string
}

type UserAgentTransport struct {
	Transport http.RoundTripper
	UserAgent string
}

func (t *UserAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.UserAgent)
	return t.Transport.RoundTrip(req)
}

// New returns an http.Client configured per opts. Requests carry an rget
// User-Agent and, when MaxRetries > 0, are retried with jittered backoff.
func New(opts Options) *http.Client {
	connTimeout := opts.ConnectTimeout
	if connTimeout == 0 {
		connTimeout = 5 * time.Second
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("rget/%s", version.GetVersion())
	}

	baseTransport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	retryClient := &retryablehttp.Client{
		HTTPClient: &http.Client{
			Transport:     &UserAgentTransport{Transport: baseTransport, UserAgent: userAgent},
			CheckRedirect: checkRedirectFunc,
		},
		Logger:       nil,
		RetryWaitMin: retryMinWait,
		RetryWaitMax: retryMaxWait,
		RetryMax:     opts.MaxRetries,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		// Hand the final response back once retries are exhausted so the
		// caller sees the status code instead of a synthetic give-up error.
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
		Backoff:      backoffFunc,
	}

	return retryClient.StandardClient()
}

// backoffFunc wraps retryablehttp.DefaultBackoff with a random jitter to avoid
// thundering herds when many chunks hit the same host at once.
func backoffFunc(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	sleep := time.Duration(rand.Intn(retrySleepJitter)) * time.Millisecond
	sleep += retryablehttp.DefaultBackoff(min, max, attemptNum, resp)
	return sleep
}

func checkRedirectFunc(req *http.Request, via []*http.Request) error {
	logger := logging.GetLogger()
	logger.Trace().
		Str("redirect_url", req.URL.String()).
		Str("url", via[0].URL.String()).
		Int("status", req.Response.StatusCode).
		Msg("Redirect")
	return nil
}
