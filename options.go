package docmerge

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option is a functional option for configuring a Runner via NewRunner.
type Option func(*Runner)

// WithLogger sets the structured logger used for row failures and run
// summaries. The default is a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithHTTPClient sets the HTTP client used to fetch placeholder images.
// The default client has a 15 second timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) {
		r.client = client
	}
}

// WithMetrics enables prometheus counter updates for row and batch
// outcomes. The counters must be registered with metrics.Init first.
func WithMetrics() Option {
	return func(r *Runner) {
		r.metrics = true
	}
}

// WithClock overrides the time source used for date tokens in generated
// file names. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}
