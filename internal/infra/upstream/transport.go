// Package upstream delivers logical HTTP calls to the auth service over one of
// two interchangeable channels: a direct HTTP call or a synchronous Lambda
// invoke shaped like an API-gateway proxy event. Both return the same
// normalized envelope, so nothing above this package knows which channel is
// deployed.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/peakcrm/authorizer/internal/config"
)

// Call describes one logical request against the auth service, independent of
// how it is delivered.
type Call struct {
	Path        string
	Method      string
	Headers     map[string]string
	QueryParams map[string]string
	Body        []byte
}

// Envelope is the normalized downstream response: the logical HTTP status and
// the raw JSON body, identical for both channels. Created per call, consumed
// immediately, discarded.
type Envelope struct {
	StatusCode int
	Body       json.RawMessage
}

// ErrorShaped reports whether the body is a JSON object carrying an "error"
// key. The auth service signals handler-level failures this way even under a
// 200 invoke status, and such responses must never read as an allow.
func (e *Envelope) ErrorShaped() bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &probe); err != nil {
		return false
	}
	_, ok := probe["error"]
	return ok
}

type Transport interface {
	Invoke(ctx context.Context, call Call) (*Envelope, error)
}

// New selects the transport for the configured upstream mode. A missing
// per-mode setting is an operator error that must abort startup.
func New(ctx context.Context, cfg *config.Config) (Transport, error) {
	switch cfg.Upstream.Mode {
	case config.UpstreamModeHTTP:
		return newHTTPTransport(cfg)
	case config.UpstreamModeLambda:
		return newLambdaTransport(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown upstream mode %q", cfg.Upstream.Mode)
	}
}
