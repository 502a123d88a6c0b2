package http

import (
	"context"
	"fmt"
	"net/http"

	appdecision "github.com/peakcrm/authorizer/internal/app/decision"
	"github.com/peakcrm/authorizer/internal/config"
	domaindecision "github.com/peakcrm/authorizer/internal/domain/decision"
	"github.com/peakcrm/authorizer/internal/infra/tokenverify"
	"github.com/peakcrm/authorizer/internal/infra/upstream"
	"github.com/peakcrm/authorizer/pkg/logger"
	"github.com/peakcrm/authorizer/pkg/otel"
	"github.com/peakcrm/authorizer/pkg/tracer"
)

type Server struct {
	httpServer *http.Server
}

const (
	idleTimeoutMultiplier = 2
	serviceName           = "authorizer"
)

func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger.Init(cfg.Observability.LogLevel, cfg.Observability.Format, cfg.Observability.LogSource)

	otelCfg := otel.Config{
		ServiceName:        serviceName,
		EndpointURL:        cfg.Observability.TracingEndpointURL,
		Enabled:            cfg.Observability.TraceEnabled,
		SampleRatio:        1.0,
		Insecure:           true,
		ResourceAttributes: make(map[string]string),
	}
	if err := tracer.InitTracer(serviceName, otelCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	transport, err := upstream.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream transport: %w", err)
	}

	var revocationStore tokenverify.RevocationStore
	if cfg.Redis.URL != "" {
		redisClient, err := tokenverify.NewRedisClient(cfg.Redis.URL, cfg.Redis.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		revocationStore = tokenverify.NewRedisRevocationStore(redisClient)
	}
	verifier := tokenverify.NewVerifier(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, revocationStore)

	domainService := domaindecision.NewService(transport, cfg.Upstream.PathPrefix)
	appService := appdecision.NewService(domainService, verifier)

	handler := NewHandler(appService, cfg)
	router := NewRouter(handler, cfg)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout * idleTimeoutMultiplier,
	}

	return &Server{
		httpServer: httpServer,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
