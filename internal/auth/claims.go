package auth

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is the issuance window used when none is configured
	DefaultTokenTTL = 24 * time.Hour

	// MinTokenTTL matches the one-second precision of JWT NumericDate
	MinTokenTTL = time.Second

	// MaxTokenTTL bounds the issuance window
	MaxTokenTTL = 366 * 24 * time.Hour
)

// Claims is the payload carried by a token. It is a value object: a new
// Claims (and token) is minted instead of editing an existing one.
//
// Times are carried at second precision. Extra holds JSON-typed values
// (string, float64, bool, nil, []any, map[string]any); an empty Extra
// is carried as nil.
type Claims struct {
	ID        string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Extra     map[string]any
}

// ClaimsPolicy decides what goes into a token and judges expiry.
type ClaimsPolicy struct {
	ttl time.Duration
	now func() time.Time
}

// PolicyOption configures a ClaimsPolicy
type PolicyOption func(*ClaimsPolicy)

// WithClock overrides the wall clock used for issuance and verification
func WithClock(now func() time.Time) PolicyOption {
	return func(p *ClaimsPolicy) {
		if now != nil {
			p.now = now
		}
	}
}

// NewClaimsPolicy creates a policy with a fixed issuance window
func NewClaimsPolicy(ttl time.Duration, opts ...PolicyOption) (*ClaimsPolicy, error) {
	if ttl < MinTokenTTL || ttl > MaxTokenTTL {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidTTL, ttl)
	}

	p := &ClaimsPolicy{
		ttl: ttl,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// TTL returns the issuance window
func (p *ClaimsPolicy) TTL() time.Duration {
	return p.ttl
}

// Now returns the policy clock truncated to token precision
func (p *ClaimsPolicy) Now() time.Time {
	return p.now().UTC().Truncate(time.Second)
}

// ExpiryFor returns issuedAt plus the issuance window.
func (p *ClaimsPolicy) ExpiryFor(issuedAt time.Time) time.Time {
	return issuedAt.Add(p.ttl).Truncate(time.Second)
}

// IsExpired reports whether expiresAt is at or before now. A token expiring
// exactly at now is expired.
func (p *ClaimsPolicy) IsExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}

// NewClaims mints claims for subject with a fresh token id
func (p *ClaimsPolicy) NewClaims(subject string, extra map[string]any) Claims {
	issuedAt := p.Now()
	c := Claims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  issuedAt,
		ExpiresAt: p.ExpiryFor(issuedAt),
	}
	if len(extra) > 0 {
		c.Extra = maps.Clone(extra)
	}
	return c
}
