package decision

import (
	"context"

	domain "github.com/peakcrm/authorizer/internal/domain/decision"
	"github.com/peakcrm/authorizer/internal/infra/tokenverify"
	"github.com/peakcrm/authorizer/pkg/tracer"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Service is the decision assembler: one entry point per kind of inbound
// request, each terminal on first failure. Failure kinds pass through
// unchanged so the transport layer can answer 401 vs 403.
type Service interface {
	ResolveIdentity(ctx context.Context, credential, email string) (*domain.DecisionOutcome, error)
	CheckAccess(ctx context.Context, req domain.AuthorizationRequest) (*domain.DecisionOutcome, error)
	ResolveScope(ctx context.Context, credential, category string) (*domain.VisibilityScope, *tokenverify.Meta, error)
}

type service struct {
	domainService domain.Service
	verifier      tokenverify.Verifier
}

func NewService(domainService domain.Service, verifier tokenverify.Verifier) Service {
	return &service{
		domainService: domainService,
		verifier:      verifier,
	}
}

func (s *service) ResolveIdentity(ctx context.Context, credential, email string) (*domain.DecisionOutcome, error) {
	ctx, span := tracer.Start(ctx, "app.decision.ResolveIdentity")
	defer span.End()

	span.SetAttributes(attribute.String("identity.email", email))

	users, err := s.domainService.ResolveIdentity(ctx, credential, email)
	if err != nil {
		recordDenial(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("decision.allowed", true),
		attribute.Int("identity.matches", len(users)),
	)

	return &domain.DecisionOutcome{
		Allowed:      true,
		SubjectUsers: users,
	}, nil
}

func (s *service) CheckAccess(ctx context.Context, req domain.AuthorizationRequest) (*domain.DecisionOutcome, error) {
	ctx, span := tracer.Start(ctx, "app.decision.CheckAccess")
	defer span.End()

	span.SetAttributes(
		attribute.String("rbac.endpoint", req.Endpoint),
		attribute.String("rbac.method", req.Method),
	)

	if err := s.domainService.CheckAccess(ctx, req); err != nil {
		recordDenial(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("decision.allowed", true))

	return &domain.DecisionOutcome{Allowed: true}, nil
}

func (s *service) ResolveScope(ctx context.Context, credential, category string) (*domain.VisibilityScope, *tokenverify.Meta, error) {
	ctx, span := tracer.Start(ctx, "app.decision.ResolveScope")
	defer span.End()

	span.SetAttributes(attribute.String("visibility.category", category))

	scope, err := s.domainService.ResolveScope(ctx, credential, category)
	if err != nil {
		recordDenial(span, err)
		return nil, nil, err
	}

	// Independent verification pass over the same credential; it only
	// contributes response metadata, never the scope itself.
	meta, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		denied := domain.Unauthenticated("credential verification failed")
		recordDenial(span, denied)
		return nil, nil, denied
	}

	span.SetAttributes(attribute.Bool("decision.allowed", true))

	return scope, meta, nil
}

func recordDenial(span trace.Span, err error) {
	span.SetAttributes(
		attribute.Bool("decision.allowed", false),
		attribute.String("decision.kind", string(domain.KindOf(err))),
	)
}
