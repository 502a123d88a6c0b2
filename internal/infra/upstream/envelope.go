package upstream

// proxyRequest is the API-gateway-shaped event submitted to the auth-service
// function. RequestContext marshals as an empty object; the function only
// requires the key to be present.
type proxyRequest struct {
	Resource              string            `json:"resource"`
	Path                  string            `json:"path"`
	HTTPMethod            string            `json:"httpMethod"`
	Headers               map[string]string `json:"headers"`
	QueryStringParameters map[string]string `json:"queryStringParameters,omitempty"`
	Body                  string            `json:"body,omitempty"`
	RequestContext        struct{}          `json:"requestContext"`
}

// proxyResponse is the outer response envelope produced by the function: the
// logical HTTP status plus the JSON-encoded logical body. Decoding it and then
// the body string gives the same Envelope a direct HTTP call would.
type proxyResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}
