package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/accountpulse/accountpulse/internal/config"
	"github.com/accountpulse/accountpulse/internal/handler/dto"
	"github.com/accountpulse/accountpulse/internal/metrics"
	"github.com/accountpulse/accountpulse/internal/middleware"
)

// ErrorKind classifies why an endpoint failed.
type ErrorKind string

const (
	// KindConfigMissing means a required credential is not configured.
	KindConfigMissing ErrorKind = "config_missing"
	// KindUpstreamFailure means the integration call failed.
	KindUpstreamFailure ErrorKind = "upstream_failure"
)

// Disclosure controls whether an upstream error message reaches the client.
type Disclosure int

const (
	// DiscloseNone always returns the endpoint's fallback message.
	DiscloseNone Disclosure = iota
	// DiscloseCause returns the upstream error message, or the fallback
	// when the message is empty.
	DiscloseCause
)

// ErrorPolicy is how one endpoint reports upstream failures.
type ErrorPolicy struct {
	Endpoint   string
	Fallback   string
	Disclosure Disclosure
}

// Message returns the client-facing message for err.
func (p ErrorPolicy) Message(err error) string {
	if p.Disclosure == DiscloseCause && err != nil {
		if msg := err.Error(); strings.TrimSpace(msg) != "" {
			return msg
		}
	}
	return p.Fallback
}

// failures logs, counts and writes endpoint failures.
type failures struct {
	logger  *slog.Logger
	metrics metrics.Recorder
}

func newFailures(logger *slog.Logger, recorder metrics.Recorder) failures {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return failures{logger: logger, metrics: recorder}
}

// configMissing answers 500 with the presence check message.
func (f failures) configMissing(w http.ResponseWriter, r *http.Request, policy ErrorPolicy, check config.PresenceCheck) {
	f.record(r, policy, KindConfigMissing, check.Message())
	writeJSON(w, http.StatusInternalServerError, dto.ErrorMessage{Error: check.Message()})
}

// upstream answers 500 with the message the policy allows.
func (f failures) upstream(w http.ResponseWriter, r *http.Request, policy ErrorPolicy, err error) {
	f.record(r, policy, KindUpstreamFailure, errorText(err))
	writeJSON(w, http.StatusInternalServerError, dto.ErrorMessage{Error: policy.Message(err)})
}

// swallowed records a failure the endpoint hides from the client.
func (f failures) swallowed(r *http.Request, policy ErrorPolicy, err error) {
	f.metrics.IncHandlerFailure(policy.Endpoint, string(KindUpstreamFailure))
	f.logger.Warn("endpoint failure swallowed",
		slog.String("endpoint", policy.Endpoint),
		slog.String("kind", string(KindUpstreamFailure)),
		slog.String("error", errorText(err)),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
}

func (f failures) record(r *http.Request, policy ErrorPolicy, kind ErrorKind, cause string) {
	f.metrics.IncHandlerFailure(policy.Endpoint, string(kind))
	f.logger.Error("endpoint failed",
		slog.String("endpoint", policy.Endpoint),
		slog.String("kind", string(kind)),
		slog.String("error", cause),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
