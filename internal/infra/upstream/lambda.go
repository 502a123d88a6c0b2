package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/peakcrm/authorizer/internal/config"
	"github.com/peakcrm/authorizer/pkg/logger"
)

// lambdaInvoker is the slice of the Lambda API this transport uses.
type lambdaInvoker interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

type lambdaTransport struct {
	client      lambdaInvoker
	functionARN string
	resource    string
	timeout     time.Duration
}

func newLambdaTransport(ctx context.Context, cfg *config.Config) (*lambdaTransport, error) {
	if cfg.Upstream.FunctionARN == "" {
		return nil, errors.New("upstream.function_arn not set, will not continue")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Upstream.AWSRegion != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Upstream.AWSRegion))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &lambdaTransport{
		client:      lambda.NewFromConfig(awsCfg),
		functionARN: cfg.Upstream.FunctionARN,
		resource:    cfg.Upstream.Resource,
		timeout:     cfg.Upstream.Timeout,
	}, nil
}

func (t *lambdaTransport) Invoke(ctx context.Context, call Call) (*Envelope, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	event := proxyRequest{
		Resource:              t.resource,
		Path:                  call.Path,
		HTTPMethod:            call.Method,
		Headers:               call.Headers,
		QueryStringParameters: call.QueryParams,
		Body:                  string(call.Body),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invocation payload: %w", err)
	}

	out, err := t.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(t.functionARN),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("lambda invoke of %s failed: %w", call.Path, err)
	}

	// The invoke status is the invocation layer's own result, distinct from
	// the logical status inside the payload.
	if out.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lambda invoke returned status %d", out.StatusCode)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("lambda function error: %s", aws.ToString(out.FunctionError))
	}

	var outer proxyResponse
	if err := json.Unmarshal(out.Payload, &outer); err != nil {
		return nil, fmt.Errorf("failed to decode invocation envelope: %w", err)
	}

	body := []byte(outer.Body)
	if !json.Valid(body) {
		return nil, fmt.Errorf("invocation envelope for %s carries a non-JSON body", call.Path)
	}

	logger.InfoContext(ctx, "upstream response",
		slog.String("path", call.Path),
		slog.Int("status", outer.StatusCode),
	)
	logger.DebugContext(ctx, "upstream response body",
		slog.String("path", call.Path),
		slog.String("body", outer.Body),
	)

	return &Envelope{
		StatusCode: outer.StatusCode,
		Body:       body,
	}, nil
}
