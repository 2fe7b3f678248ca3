// Package intent classifies colloquial service queries with an external,
// OpenAI-compatible language model. Failures never propagate: every outcome
// is a Result whose Degraded reason says why no expansion is available.
package intent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/banshi/internal/models"
)

// DegradedReason explains why a classification produced no usable intent.
type DegradedReason string

const (
	// NotDegraded marks a successful classification.
	NotDegraded DegradedReason = ""
	// NoCredentials means no API key was configured; no request was made.
	NoCredentials DegradedReason = "no_credentials"
	// Transport covers connection failures and other request errors.
	Transport DegradedReason = "transport"
	// BadStatus means the service answered with a non-success status.
	BadStatus DegradedReason = "bad_status"
	// Timeout means the per-call deadline expired.
	Timeout DegradedReason = "timeout"
	// Canceled means the caller abandoned the turn.
	Canceled DegradedReason = "canceled"
	// EmptyResponse means the service returned no message content.
	EmptyResponse DegradedReason = "empty_response"
	// Unparseable means no JSON object could be recovered from the content.
	Unparseable DegradedReason = "unparseable"
)

// Result is the outcome of one classification.
type Result struct {
	Intent   models.AnalyzedIntent `json:"intent"`
	Degraded DegradedReason        `json:"degraded,omitempty"`
}

// OK reports whether the classification succeeded.
func (r Result) OK() bool {
	return r.Degraded == NotDegraded
}

// Degraded returns the empty-intent result for reason.
func Degraded(reason DegradedReason) Result {
	return Result{Intent: models.EmptyIntent(), Degraded: reason}
}

// Succeeded wraps a parsed intent.
func Succeeded(intent models.AnalyzedIntent) Result {
	return Result{Intent: intent}
}

// Classifier produces an intent for a raw query. Implementations must not block
// past ctx and must report failures through Result.Degraded.
type Classifier interface {
	Classify(ctx context.Context, query string) Result
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, query string) Result

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, query string) Result {
	return f(ctx, query)
}

// Disabled is the classifier used when no credentials are configured.
type Disabled struct{}

// Classify returns a NoCredentials result without any I/O.
func (Disabled) Classify(context.Context, string) Result {
	return Degraded(NoCredentials)
}

// Credentials is the per-request service configuration of the analyze API.
type Credentials struct {
	APIURL string `json:"apiUrl" yaml:"api_url"`
	APIKey string `json:"apiKey" yaml:"api_key"`
	Model  string `json:"model" yaml:"model"`
}

// Config configures a classifier.
type Config struct {
	Credentials
	Timeout time.Duration
	Logger  *zap.Logger
}

// New returns an OpenAI-compatible classifier, or Disabled when cfg has no API key.
func New(cfg Config) Classifier {
	if cfg.APIKey == "" {
		return Disabled{}
	}
	return NewOpenAIClassifier(cfg)
}
