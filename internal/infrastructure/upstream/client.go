// Package upstream talks to the document-management backend the gateway
// fronts. The Client separates transport failures (connection refused, DNS,
// timeouts) from HTTP-level errors so the session layer can distinguish
// "network problem, retry later" from "the upstream said no".
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/docuchat/admin-gateway/internal/api/metrics"
	"github.com/docuchat/admin-gateway/internal/core/domain"
)

// Upstream endpoint paths, matching the backend's published routes.
const (
	pathDocuments        = "/documents"
	pathDocumentTypes    = "/documents/types"
	pathVectorAdd        = "/vector/add"
	pathVectorUpdate     = "/vector/update"
	pathVectorDelete     = "/vector/delete"
	pathSearchUser       = "/search/user"
	pathSearchDepartment = "/search/department"
	pathUsers            = "/users"
	pathDepartments      = "/departments"
	pathSearchLLM        = "/search/llm"
)

const bodyExcerptLimit = 512

// Client is the shared HTTP transport for all typed upstream clients.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient builds a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// Response is a fully-read upstream response.
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// DecodeJSON parses the body into v. Empty or non-JSON bodies yield a
// wrapped domain.ErrEmptyBody instead of a panic or a raw syntax error.
func (r *Response) DecodeJSON(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return domain.ErrEmptyBody
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmptyBody, err)
	}
	return nil
}

// BodyExcerpt returns a trimmed body for inclusion in error messages.
func (r *Response) BodyExcerpt() string {
	s := strings.TrimSpace(string(r.Body))
	if len(s) > bodyExcerptLimit {
		s = s[:bodyExcerptLimit] + "…"
	}
	return s
}

// Do issues a request. A non-empty token is attached as a bearer
// credential. Transport failures are wrapped in domain.ErrUpstreamUnreachable;
// any received response, 2xx or not, is returned without error.
//
// route is the endpoint template used as the metric label; path is the
// concrete request path. Keeping them apart stops per-document IDs from
// exploding the metric's label cardinality.
func (c *Client) Do(ctx context.Context, method, route, path string, query url.Values, body io.Reader, contentType, token string) (*Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(route, "transport_error").Inc()
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("upstream request failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(route, "transport_error").Inc()
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrUpstreamUnreachable, err)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(route, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	metrics.UpstreamRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())

	return &Response{Status: resp.StatusCode, Body: raw}, nil
}

// DoJSON marshals payload as the JSON request body. All JSON endpoints use
// template paths, so path doubles as the metric route.
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, payload any, token string) (*Response, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload for %s: %w", path, err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.Do(ctx, method, path, path, query, body, contentType, token)
}

// AsError maps a non-2xx response to a domain error. Endpoint-specific
// mappings (the login status codes) live in the typed clients.
func (r *Response) AsError() error {
	if r.Status == http.StatusUnauthorized {
		return domain.ErrNotAuthorized
	}
	return &domain.UpstreamStatusError{Status: r.Status, Body: r.BodyExcerpt()}
}
