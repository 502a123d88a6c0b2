package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/peakcrm/authorizer/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout = 15 * time.Second
	DefaultRetry   = 2
)

var (
	//nolint:gochecknoglobals // Global HTTP client is intentional for application-wide requests
	client *resty.Client
	//nolint:gochecknoglobals // Global once is intentional for thread-safe initialization
	once sync.Once
	//nolint:gochecknoglobals // Configured before first use, then immutable
	clientTimeout = DefaultTimeout
	//nolint:gochecknoglobals // Configured before first use, then immutable
	clientRetry = DefaultRetry
)

// Configure sets the timeout and retry count applied to the shared client.
// It must be called before the first request; later calls have no effect.
// Retries apply to transport-level failures only, never to a response that
// was actually delivered.
func Configure(timeout time.Duration, retryCount int) {
	if timeout > 0 {
		clientTimeout = timeout
	}
	if retryCount >= 0 {
		clientRetry = retryCount
	}
}

func getClient() *resty.Client {
	once.Do(func() {
		client = resty.New().
			SetTimeout(clientTimeout).
			SetRetryCount(clientRetry).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json")
	})
	return client
}

type RequestOption func(*resty.Request)

func WithBody(body any) RequestOption {
	return func(r *resty.Request) {
		r.SetBody(body)
	}
}

func WithHeaders(headers map[string]string) RequestOption {
	return func(r *resty.Request) {
		for k, v := range headers {
			r.SetHeader(k, v)
		}
	}
}

func WithQueryParams(params map[string]string) RequestOption {
	return func(r *resty.Request) {
		r.SetQueryParams(params)
	}
}

func Request(ctx context.Context, method, url string, opts ...RequestOption) (*resty.Response, error) {
	ctx, span := startClientSpan(ctx, "http.Request", method, url)
	defer span.End()

	request := getClient().R().SetContext(ctx)

	for _, opt := range opts {
		opt(request)
	}

	injectTracingHeaders(ctx, request)

	var resp *resty.Response
	var err error

	switch method {
	case http.MethodGet:
		resp, err = request.Get(url)
	case http.MethodPost:
		resp, err = request.Post(url)
	case http.MethodPut:
		resp, err = request.Put(url)
	case http.MethodPatch:
		resp, err = request.Patch(url)
	case http.MethodDelete:
		resp, err = request.Delete(url)
	default:
		resp, err = request.Execute(method, url)
	}

	recordSpan(span, resp, err)
	return resp, err
}

func startClientSpan(
	ctx context.Context,
	spanName string,
	method string,
	url string,
) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", url),
	))
}

func recordSpan(span trace.Span, resp *resty.Response, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if resp == nil {
		return
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	if resp.IsError() {
		span.SetStatus(codes.Error, resp.Status())
		return
	}
	span.SetStatus(codes.Ok, "")
}
