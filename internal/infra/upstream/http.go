package upstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/peakcrm/authorizer/internal/config"
	pkghttp "github.com/peakcrm/authorizer/pkg/http"
	"github.com/peakcrm/authorizer/pkg/logger"
)

type httpTransport struct {
	baseURL string
}

func newHTTPTransport(cfg *config.Config) (*httpTransport, error) {
	if cfg.Upstream.BaseURL == "" {
		return nil, errors.New("upstream.base_url not set, will not continue")
	}

	pkghttp.Configure(cfg.Upstream.Timeout, cfg.Upstream.RetryCount)

	return &httpTransport{
		baseURL: strings.TrimSuffix(cfg.Upstream.BaseURL, "/"),
	}, nil
}

func (t *httpTransport) Invoke(ctx context.Context, call Call) (*Envelope, error) {
	opts := []pkghttp.RequestOption{
		pkghttp.WithHeaders(call.Headers),
	}
	if len(call.QueryParams) > 0 {
		opts = append(opts, pkghttp.WithQueryParams(call.QueryParams))
	}
	if len(call.Body) > 0 {
		opts = append(opts, pkghttp.WithBody(call.Body))
	}

	resp, err := pkghttp.Request(ctx, call.Method, t.baseURL+call.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("upstream call %s failed: %w", call.Path, err)
	}

	logger.InfoContext(ctx, "upstream response",
		slog.String("path", call.Path),
		slog.Int("status", resp.StatusCode()),
	)
	logger.DebugContext(ctx, "upstream response body",
		slog.String("path", call.Path),
		slog.String("body", string(resp.Body())),
	)

	return &Envelope{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}
