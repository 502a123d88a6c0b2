package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/peakcrm/authorizer/internal/infra/upstream"
)

// Service decides whether a request may proceed, by consulting the identity,
// RBAC and visibility-scope operations of the auth service. Every decision is
// stateless; nothing is cached or retried here, and any failure keeps its kind
// so the enforcing layer can answer 401 vs 403 correctly.
type Service interface {
	// ResolveIdentity fetches the user records matching email. An empty result
	// is not an error; the caller decides what "no identity found" means.
	ResolveIdentity(ctx context.Context, credential, email string) ([]UserIdentity, error)

	// CheckAccess asks the policy service whether the request's endpoint and
	// method are permitted for the credential carried in its headers. Returning
	// nil means allowed; anything that cannot be confidently read as an
	// explicit allow denies.
	CheckAccess(ctx context.Context, req AuthorizationRequest) error

	// ResolveScope fetches the visibility scope for an already-normalized
	// category. The allow-list check belongs to the caller; an unknown category
	// reaching this far simply comes back as a downstream denial.
	ResolveScope(ctx context.Context, credential, category string) (*VisibilityScope, error)
}

type service struct {
	transport  upstream.Transport
	pathPrefix string
}

func NewService(transport upstream.Transport, pathPrefix string) Service {
	return &service{
		transport:  transport,
		pathPrefix: strings.TrimSuffix(pathPrefix, "/"),
	}
}

func (s *service) ResolveIdentity(ctx context.Context, credential, email string) ([]UserIdentity, error) {
	if credential == "" {
		return nil, Unauthenticated("missing credential")
	}

	env, err := s.transport.Invoke(ctx, upstream.Call{
		Path:    s.pathPrefix + "/user/list",
		Method:  http.MethodGet,
		Headers: map[string]string{"Authorization": credential},
		QueryParams: map[string]string{
			"page":    "1",
			"size":    "1",
			"filters": fmt.Sprintf(`{"email": %q}`, email),
		},
	})
	if err != nil {
		return nil, TransportFailure("user lookup failed", err)
	}

	if env.ErrorShaped() || env.StatusCode != http.StatusOK {
		return nil, Forbidden(string(env.Body))
	}

	var resp userListResponse
	if err := json.Unmarshal(env.Body, &resp); err != nil {
		return nil, Forbidden("malformed user list response")
	}

	return resp.Data.Items, nil
}

type rbacCheckRequest struct {
	Endpoint string `json:"endpoint"`
	Method   string `json:"method"`
}

func (s *service) CheckAccess(ctx context.Context, req AuthorizationRequest) error {
	credential := credentialFromHeaders(req.Headers)
	if credential == "" {
		return Forbidden("no Authorization header found")
	}

	body, err := json.Marshal(rbacCheckRequest{
		Endpoint: req.Endpoint,
		Method:   req.Method,
	})
	if err != nil {
		return Forbidden("failed to encode rbac check request")
	}

	env, err := s.transport.Invoke(ctx, upstream.Call{
		Path:    s.pathPrefix + "/rbac/validate",
		Method:  http.MethodPost,
		Headers: map[string]string{"Authorization": credential},
		Body:    body,
	})
	if err != nil {
		return TransportFailure("rbac check failed", err)
	}

	if env.ErrorShaped() {
		return Forbidden("rbac check returned an error response")
	}

	switch env.StatusCode {
	case http.StatusOK:
		var resp rbacResponse
		if err := json.Unmarshal(env.Body, &resp); err != nil {
			return Forbidden("malformed rbac response")
		}
		if !resp.Data.Access {
			return Forbidden("access denied by rbac policy")
		}
		return nil
	case http.StatusUnauthorized:
		return Unauthenticated("credential rejected by rbac check")
	default:
		return Forbidden(fmt.Sprintf("rbac check returned status %d", env.StatusCode))
	}
}

func (s *service) ResolveScope(ctx context.Context, credential, category string) (*VisibilityScope, error) {
	if credential == "" {
		return nil, Unauthenticated("missing credential")
	}

	env, err := s.transport.Invoke(ctx, upstream.Call{
		Path:    s.pathPrefix + "/visibility_group/validate/" + url.PathEscape(category),
		Method:  http.MethodGet,
		Headers: map[string]string{"Authorization": credential},
	})
	if err != nil {
		return nil, TransportFailure("visibility check failed", err)
	}

	if env.ErrorShaped() || env.StatusCode != http.StatusOK {
		return nil, Forbidden(fmt.Sprintf("visibility check returned status %d", env.StatusCode))
	}

	var resp visibilityResponse
	if err := json.Unmarshal(env.Body, &resp); err != nil {
		return nil, Forbidden("malformed visibility response")
	}

	return &resp.Data, nil
}

// credentialFromHeaders finds the Authorization value regardless of the casing
// the gateway delivered it with.
func credentialFromHeaders(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "Authorization") {
			return v
		}
	}
	return ""
}

// NormalizeCategory lowers and trims a raw visibility category value. The
// enforcing layer normalizes before checking the allow-list, so the same input
// always matches the same entry.
func NormalizeCategory(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
