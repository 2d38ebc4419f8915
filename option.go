package entrygate

import (
	"net/http"

	"github.com/seedlabs/entrygate/gateway"
	"github.com/seedlabs/entrygate/logger"
	"github.com/seedlabs/entrygate/metrics"
)

type Option func(*EntryGate)

func WithLogger(l logger.Logger) Option {
	return func(g *EntryGate) {
		if l != nil {
			g.log = l
		}
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(g *EntryGate) {
		if r != nil {
			g.rec = r
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(g *EntryGate) {
		if c != nil {
			g.httpClient = c
		}
	}
}

// WithTokenProvider supplies per-call auth tokens instead of the static
// token from configuration.
func WithTokenProvider(tp gateway.TokenProvider) Option {
	return func(g *EntryGate) {
		g.tokens = tp
	}
}
