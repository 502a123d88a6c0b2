package decision_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/peakcrm/authorizer/internal/domain/decision"
	"github.com/peakcrm/authorizer/internal/infra/upstream"
)

type fakeTransport struct {
	calls     []upstream.Call
	envelope  *upstream.Envelope
	invokeErr error
}

func (f *fakeTransport) Invoke(_ context.Context, call upstream.Call) (*upstream.Envelope, error) {
	f.calls = append(f.calls, call)
	if f.invokeErr != nil {
		return nil, f.invokeErr
	}
	return f.envelope, nil
}

func envelope(status int, body string) *upstream.Envelope {
	return &upstream.Envelope{StatusCode: status, Body: json.RawMessage(body)}
}

func assertKind(t *testing.T, err error, kind decision.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := decision.KindOf(err); got != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, got, err)
	}
}

func TestResolveIdentity_EmptyCredential(t *testing.T) {
	transport := &fakeTransport{}
	svc := decision.NewService(transport, "/api/auth/v1")

	_, err := svc.ResolveIdentity(context.Background(), "", "a@b.com")

	assertKind(t, err, decision.KindUnauthenticated)
	if len(transport.calls) != 0 {
		t.Fatalf("expected no downstream call, got %d", len(transport.calls))
	}
}

func TestResolveIdentity_Success(t *testing.T) {
	transport := &fakeTransport{
		envelope: envelope(http.StatusOK, `{"data":{"items":[{"id":"u-1","email":"a@b.com"}]}}`),
	}
	svc := decision.NewService(transport, "/api/auth/v1")

	users, err := svc.ResolveIdentity(context.Background(), "Bearer tok", "a@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 1 || users[0].ID != "u-1" || users[0].Email != "a@b.com" {
		t.Fatalf("unexpected users: %+v", users)
	}

	call := transport.calls[0]
	if call.Path != "/api/auth/v1/user/list" {
		t.Errorf("unexpected path: %s", call.Path)
	}
	if call.Method != http.MethodGet {
		t.Errorf("unexpected method: %s", call.Method)
	}
	if call.QueryParams["page"] != "1" || call.QueryParams["size"] != "1" {
		t.Errorf("expected single-item page, got %v", call.QueryParams)
	}
	if !strings.Contains(call.QueryParams["filters"], `"a@b.com"`) {
		t.Errorf("filters missing email: %s", call.QueryParams["filters"])
	}
	if call.Headers["Authorization"] != "Bearer tok" {
		t.Errorf("missing Authorization header: %v", call.Headers)
	}
}

func TestResolveIdentity_EmptyResultIsNotAnError(t *testing.T) {
	transport := &fakeTransport{
		envelope: envelope(http.StatusOK, `{"data":{"items":[]}}`),
	}
	svc := decision.NewService(transport, "/api/auth/v1")

	users, err := svc.ResolveIdentity(context.Background(), "Bearer tok", "a@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected empty result, got %+v", users)
	}
}

func TestResolveIdentity_Idempotent(t *testing.T) {
	transport := &fakeTransport{
		envelope: envelope(http.StatusOK, `{"data":{"items":[{"id":"u-1","email":"a@b.com"}]}}`),
	}
	svc := decision.NewService(transport, "/api/auth/v1")

	first, err := svc.ResolveIdentity(context.Background(), "Bearer tok", "a@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.ResolveIdentity(context.Background(), "Bearer tok", "a@b.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transport.calls) != 2 {
		t.Fatalf("expected 2 downstream calls, got %d", len(transport.calls))
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}

func TestResolveIdentity_Non200IsForbidden(t *testing.T) {
	transport := &fakeTransport{
		envelope: envelope(http.StatusInternalServerError, `{"detail":"boom"}`),
	}
	svc := decision.NewService(transport, "/api/auth/v1")

	_, err := svc.ResolveIdentity(context.Background(), "Bearer tok", "a@b.com")

	assertKind(t, err, decision.KindForbidden)
	if !strings.Contains(decision.DetailOf(err), "boom") {
		t.Errorf("expected downstream body as detail, got %q", decision.DetailOf(err))
	}
}

func TestResolveIdentity_TransportFailure(t *testing.T) {
	transport := &fakeTransport{invokeErr: errors.New("connection refused")}
	svc := decision.NewService(transport, "/api/auth/v1")

	_, err := svc.ResolveIdentity(context.Background(), "Bearer tok", "a@b.com")

	assertKind(t, err, decision.KindTransport)
}

func rbacRequest(headers map[string]string) decision.AuthorizationRequest {
	return decision.AuthorizationRequest{
		Endpoint: "/user",
		Method:   http.MethodGet,
		Headers:  headers,
	}
}

func TestCheckAccess_MissingAuthorizationHeader(t *testing.T) {
	transport := &fakeTransport{}
	svc := decision.NewService(transport, "/api/auth/v1")

	err := svc.CheckAccess(context.Background(), rbacRequest(map[string]string{"Accept": "application/json"}))

	assertKind(t, err, decision.KindForbidden)
	if !strings.Contains(decision.DetailOf(err), "no Authorization header") {
		t.Errorf("unexpected detail: %q", decision.DetailOf(err))
	}
	if len(transport.calls) != 0 {
		t.Fatalf("expected no downstream call, got %d", len(transport.calls))
	}
}

func TestCheckAccess_HeaderLookupIsCaseInsensitive(t *testing.T) {
	transport := &fakeTransport{
		envelope: envelope(http.StatusOK, `{"data":{"access":true}}`),
	}
	svc := decision.NewService(transport, "/api/auth/v1")

	err := svc.CheckAccess(context.Background(), rbacRequest(map[string]string{"authorization": "Bearer tok"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transport.calls[0].Headers["Authorization"] != "Bearer tok" {
		t.Errorf("credential not forwarded: %v", transport.calls[0].Headers)
	}
}

func TestCheckAccess_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		envelope *upstream.Envelope
		wantKind decision.Kind
	}{
		{"allowed", envelope(http.StatusOK, `{"data":{"access":true}}`), ""},
		{"denied", envelope(http.StatusOK, `{"data":{"access":false}}`), decision.KindForbidden},
		{"unauthorized", envelope(http.StatusUnauthorized, `{}`), decision.KindUnauthenticated},
		{"server error", envelope(http.StatusInternalServerError, `{}`), decision.KindForbidden},
		{"not found", envelope(http.StatusNotFound, `{}`), decision.KindForbidden},
		{"error shaped body", envelope(http.StatusOK, `{"error":"handler crashed"}`), decision.KindForbidden},
		{"malformed body", envelope(http.StatusOK, `not json`), decision.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{envelope: tt.envelope}
			svc := decision.NewService(transport, "/api/auth/v1")

			err := svc.CheckAccess(context.Background(), rbacRequest(map[string]string{"Authorization": "Bearer tok"}))

			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			assertKind(t, err, tt.wantKind)
		})
	}
}

func TestCheckAccess_SubmitsEndpointAndMethod(t *testing.T) {
	transport := &fakeTransport{
		envelope: envelope(http.StatusOK, `{"data":{"access":true}}`),
	}
	svc := decision.NewService(transport, "/api/auth/v1")

	err := svc.CheckAccess(context.Background(), rbacRequest(map[string]string{"Authorization": "Bearer tok"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	call := transport.calls[0]
	if call.Path != "/api/auth/v1/rbac/validate" || call.Method != http.MethodPost {
		t.Fatalf("unexpected call: %s %s", call.Method, call.Path)
	}

	var body struct {
		Endpoint string `json:"endpoint"`
		Method   string `json:"method"`
	}
	if err := json.Unmarshal(call.Body, &body); err != nil {
		t.Fatalf("failed to decode submitted body: %v", err)
	}
	if body.Endpoint != "/user" || body.Method != http.MethodGet {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestCheckAccess_TransportFailure(t *testing.T) {
	transport := &fakeTransport{invokeErr: errors.New("invoke failed")}
	svc := decision.NewService(transport, "/api/auth/v1")

	err := svc.CheckAccess(context.Background(), rbacRequest(map[string]string{"Authorization": "Bearer tok"}))

	assertKind(t, err, decision.KindTransport)
}

func TestResolveScope_EmptyCredential(t *testing.T) {
	transport := &fakeTransport{}
	svc := decision.NewService(transport, "/api/auth/v1")

	_, err := svc.ResolveScope(context.Background(), "", "opportunity")

	assertKind(t, err, decision.KindUnauthenticated)
	if len(transport.calls) != 0 {
		t.Fatalf("expected no downstream call, got %d", len(transport.calls))
	}
}

func TestResolveScope_Success(t *testing.T) {
	transport := &fakeTransport{
		envelope: envelope(http.StatusOK, `{"data":{"users":[{"id":"u-1","email":"a@b.com"}]}}`),
	}
	svc := decision.NewService(transport, "/api/auth/v1")

	scope, err := svc.ResolveScope(context.Background(), "Bearer tok", "opportunity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scope.Users) != 1 || scope.Users[0].ID != "u-1" {
		t.Fatalf("unexpected scope: %+v", scope)
	}

	if transport.calls[0].Path != "/api/auth/v1/visibility_group/validate/opportunity" {
		t.Errorf("unexpected path: %s", transport.calls[0].Path)
	}
}

func TestResolveScope_NullUsersMeansUnrestricted(t *testing.T) {
	transport := &fakeTransport{
		envelope: envelope(http.StatusOK, `{"data":{"users":null}}`),
	}
	svc := decision.NewService(transport, "/api/auth/v1")

	scope, err := svc.ResolveScope(context.Background(), "Bearer tok", "seller")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scope.Users != nil {
		t.Fatalf("expected nil users, got %+v", scope.Users)
	}
}

func TestResolveScope_Non200IsForbidden(t *testing.T) {
	transport := &fakeTransport{
		envelope: envelope(http.StatusBadRequest, `{"detail":"invalid"}`),
	}
	svc := decision.NewService(transport, "/api/auth/v1")

	_, err := svc.ResolveScope(context.Background(), "Bearer tok", "unknown")

	assertKind(t, err, decision.KindForbidden)
}

func TestNormalizeCategory(t *testing.T) {
	if got := decision.NormalizeCategory("  Opportunity "); got != "opportunity" {
		t.Errorf("expected opportunity, got %q", got)
	}
}
