package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/seopilot/pkg/authstate"
	"github.com/dmitrymomot/seopilot/pkg/billing"
	"github.com/dmitrymomot/seopilot/pkg/edge"
	"github.com/dmitrymomot/seopilot/pkg/logger"
)

const maxResponseBytes = 1 << 20

// Project is a Supabase project endpoint shared by every view.
type Project struct {
	baseURL string
	anonKey string
	http    *http.Client
	log     *slog.Logger
	now     func() time.Time
}

// Option configures a Project.
type Option func(*Project)

// WithHTTPClient replaces the HTTP client. Nil is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Project) {
		if c != nil {
			p.http = c
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(p *Project) {
		if d > 0 {
			p.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the logger. Nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Project) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock overrides the time source used for session expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Project) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a Project for the project at rawURL authenticated with anonKey.
func New(rawURL, anonKey string, opts ...Option) (*Project, error) {
	rawURL = strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if rawURL == "" {
		return nil, ErrURLRequired
	}
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("supabase: invalid project url: %w", err)
	}
	if anonKey == "" {
		return nil, ErrAnonKeyRequired
	}

	p := &Project{
		baseURL: rawURL,
		anonKey: anonKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     logger.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Invoke calls the edge function name with in as JSON body and decodes the
// response into out. session supplies the bearer token; nil sends the anon key.
func (p *Project) Invoke(ctx context.Context, name string, session *authstate.Session, in, out any) error {
	bearer := ""
	if session != nil {
		bearer = session.AccessToken
	}
	if err := p.do(ctx, http.MethodPost, "/functions/v1/"+name, nil, bearer, in, out); err != nil {
		return fmt.Errorf("invoke %s: %w", name, err)
	}
	return nil
}

// CheckSubscription implements billing.Probe with the check-subscription function.
func (p *Project) CheckSubscription(ctx context.Context, session *authstate.Session) (billing.Status, error) {
	if session == nil {
		return billing.Status{}, ErrNotSignedIn
	}
	var status billing.Status
	if err := p.Invoke(ctx, edge.FnCheckSubscription, session, struct{}{}, &status); err != nil {
		return billing.Status{}, err
	}
	return status, nil
}

// CustomerPortal implements billing.Portal with the customer-portal function.
func (p *Project) CustomerPortal(ctx context.Context, session *authstate.Session, returnURL string) (string, error) {
	if session == nil {
		return "", ErrNotSignedIn
	}
	var resp edge.PortalResponse
	if err := p.Invoke(ctx, edge.FnCustomerPortal, session, edge.PortalRequest{ReturnURL: returnURL}, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (p *Project) do(ctx context.Context, method, path string, query url.Values, bearer string, in, out any) error {
	target := p.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bearer == "" {
		bearer = p.anonKey
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, raw)
		p.log.DebugContext(ctx, "supabase request failed",
			logger.Component("supabase"), slog.String("path", path),
			logger.Status(resp.StatusCode), logger.Error(apiErr))
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError reads the message out of the GoTrue and edge function error shapes.
func decodeError(status int, raw []byte) *APIError {
	var body struct {
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
		Error            any    `json:"error"`
		ErrorCode        string `json:"error_code"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Code = body.ErrorCode
	errString, _ := body.Error.(string)
	for _, m := range []string{body.Msg, body.ErrorDescription, body.Message, errString} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Code == "" && body.ErrorDescription != "" {
		apiErr.Code = errString
	}
	return apiErr
}
