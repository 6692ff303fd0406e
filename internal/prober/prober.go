// Package prober validates account tokens against the profile endpoint.
//
// A probe is exactly one GET request. Its outcome is classified into the
// variants of [account.Outcome]; nothing is retried, and a failure is final
// until the next scheduled run.
package prober

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jpalmerr/tokenwatch/internal/account"
	"github.com/jpalmerr/tokenwatch/internal/profile"
)

const (
	// DefaultProfileURL is the "current user" endpoint the tokens are checked against.
	DefaultProfileURL = "https://discord.com/api/v9/users/@me"

	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 10 * time.Second

	// TemplateToken is the placeholder value shipped in example .env files.
	TemplateToken = "your_token_here"
)

// Prober issues profile requests for credentials.
type Prober struct {
	client    *Client
	url       string
	timeout   time.Duration
	userAgent string
	now       func() time.Time
}

// Option configures a [Prober].
type Option func(*Prober)

// WithClient replaces the HTTP client.
func WithClient(c *Client) Option {
	return func(p *Prober) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTimeout sets the per-probe timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(p *Prober) {
		p.userAgent = ua
	}
}

// WithClock overrides the time source used for CheckedAt and LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(p *Prober) {
		if now != nil {
			p.now = now
		}
	}
}

// New creates a [Prober] for the given profile URL.
// An empty url selects [DefaultProfileURL].
func New(url string, opts ...Option) *Prober {
	if url == "" {
		url = DefaultProfileURL
	}
	p := &Prober{
		client:    NewClient(),
		url:       url,
		timeout:   DefaultTimeout,
		userAgent: "tokenwatch",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL returns the profile endpoint.
func (p *Prober) URL() string {
	return p.url
}

// Timeout returns the per-probe timeout.
func (p *Prober) Timeout() time.Duration {
	return p.timeout
}

// Probe validates one credential and classifies the outcome.
//
// A blank secret, or the .env template placeholder, fails without any
// network call.
func (p *Prober) Probe(ctx context.Context, cred account.Credential) account.ProbeResult {
	result := account.ProbeResult{
		Identifier: cred.Identifier,
		CheckedAt:  p.now().UTC(),
	}

	secret := strings.TrimSpace(cred.Secret)
	switch secret {
	case "":
		result.Outcome = account.OutcomeAuthFailure
		result.Reason = account.ReasonNoToken
		return result
	case TemplateToken:
		result.Outcome = account.OutcomeAuthFailure
		result.Reason = account.ReasonTemplateToken
		return result
	}

	headers := map[string]string{
		"Authorization": secret,
		"Content-Type":  "application/json",
	}
	if p.userAgent != "" {
		headers["User-Agent"] = p.userAgent
	}

	resp := p.client.Fetch(ctx, p.url, headers, p.timeout)
	result.StatusCode = resp.StatusCode
	result.Latency = resp.Latency

	if resp.Error != nil {
		// also covers a body cut off after the headers arrived
		result.Err = resp.Error
		result.Outcome = account.OutcomeNetworkFailure
		result.Reason = networkReason(resp.Error)
		return result
	}

	if resp.StatusCode != http.StatusOK {
		result.Outcome = account.OutcomeAuthFailure
		result.Reason = account.ReasonForStatusCode(resp.StatusCode)
		return result
	}

	prof, err := profile.Decode(cred.Identifier, resp.Body, result.CheckedAt)
	switch {
	case err == nil:
		result.Outcome = account.OutcomeSuccess
		result.Profile = prof
	case errors.Is(err, profile.ErrMalformedSnowflake):
		// still a valid token; the caller logs the anomaly
		result.Outcome = account.OutcomeSuccess
		result.Profile = prof
		result.Err = err
	default:
		result.Outcome = account.OutcomeDecodeFailure
		result.Reason = account.ReasonInvalidResponse
		result.Err = err
	}
	return result
}

// Close releases idle connections held by the underlying client.
func (p *Prober) Close() {
	p.client.Close()
}

// networkReason distinguishes timeouts from other transport failures.
func networkReason(err error) account.Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return account.ReasonTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return account.ReasonTimeout
	}
	return account.ReasonNetworkError
}
