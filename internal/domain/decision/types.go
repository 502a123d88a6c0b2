package decision

// UserIdentity is a user record as returned by the identity service.
type UserIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthorizationRequest describes the inbound request being decided. It is
// constructed once per request and read-only afterwards. The credential rides
// in Headers under the Authorization key, in whatever casing the gateway
// delivered it.
type AuthorizationRequest struct {
	Endpoint string
	Method   string
	Headers  map[string]string
}

// VisibilityScope is the decoded per-category validation result: the users
// whose records the caller may see. A nil Users slice means the caller is not
// restricted for that category.
type VisibilityScope struct {
	Users []UserIdentity `json:"users"`
}

// DecisionOutcome is the assembled allow/deny result surfaced to the enforcing
// layer. Produced fresh per call; never cached, the downstream authority stays
// the source of truth.
//
//nolint:revive // DecisionOutcome keeps the domain name in the type for clarity
type DecisionOutcome struct {
	Allowed      bool           `json:"allowed"`
	SubjectUsers []UserIdentity `json:"subject_users,omitempty"`
	DeniedReason string         `json:"denied_reason,omitempty"`
}

// userListResponse is the logical response of the identity service's list
// endpoint.
type userListResponse struct {
	Data struct {
		Items []UserIdentity `json:"items"`
	} `json:"data"`
}

// rbacResponse is the logical response of the policy service's RBAC check.
type rbacResponse struct {
	Data struct {
		Access bool `json:"access"`
	} `json:"data"`
}

// visibilityResponse is the logical response of the policy service's
// per-category validation endpoint.
type visibilityResponse struct {
	Data VisibilityScope `json:"data"`
}
