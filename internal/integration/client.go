// Package integration holds what the third-party API clients share: the
// outbound HTTP client and the upstream error type.
package integration

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/accountpulse/accountpulse/internal/metrics"
)

const (
	// ClientTimeout is the total request timeout.
	ClientTimeout = 15 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response is read.
	maxErrorBody = 4 << 10
)

// NewHTTPClient creates an HTTP client for calls to one upstream service.
// Every round trip is counted and timed under service.
func NewHTTPClient(service string, rec metrics.Recorder) *http.Client {
	if rec == nil {
		rec = metrics.NewNoop()
	}

	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &instrumentedTransport{
			service: service,
			rec:     rec,
			next: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   DialTimeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   TLSHandshakeTimeout,
				ResponseHeaderTimeout: ResponseHeaderTimeout,
				MaxIdleConns:          50,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
			},
		},
	}
}

// instrumentedTransport records call outcome and latency.
type instrumentedTransport struct {
	service string
	rec     metrics.Recorder
	next    http.RoundTripper
}

func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	t.rec.ObserveUpstreamDuration(t.service, time.Since(start))

	outcome := metrics.OutcomeSuccess
	if err != nil || resp.StatusCode >= http.StatusBadRequest {
		outcome = metrics.OutcomeError
	}
	t.rec.IncUpstreamCall(t.service, outcome)

	return resp, err
}

// APIError is a non-2xx response from an upstream API.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API returned HTTP %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s API returned HTTP %d: %s", e.Service, e.StatusCode, e.Message)
}

// NewAPIError reads a bounded error body from resp and extracts a message.
// It understands {"errors":[{"message"}]}, {"err_msg"} and {"error"} bodies and
// falls back to the trimmed raw body.
func NewAPIError(service string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	return &APIError{
		Service:    service,
		StatusCode: resp.StatusCode,
		Message:    extractMessage(body),
	}
}

func extractMessage(body []byte) string {
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
		ErrMsg  string `json:"err_msg"`
		Error   any    `json:"error"`
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case len(parsed.Errors) > 0 && parsed.Errors[0].Message != "":
			return parsed.Errors[0].Message
		case parsed.ErrMsg != "":
			return parsed.ErrMsg
		case parsed.Message != "":
			return parsed.Message
		}
		if s, ok := parsed.Error.(string); ok && s != "" {
			return s
		}
	}

	return strings.TrimSpace(string(body))
}
