package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the smallest HMAC-SHA256 key accepted
const MinSecretLength = 32

// tokenClaims is the wire form of Claims
type tokenClaims struct {
	jwt.RegisteredClaims
	Extra map[string]any `json:"extra,omitempty"`
}

// Codec encodes claims into signed compact tokens and verifies them back.
// It is immutable after construction and safe for concurrent use.
type Codec struct {
	method jwt.SigningMethod
	secret []byte
	policy *ClaimsPolicy
	issuer string
	parser *jwt.Parser
}

// CodecOption configures a Codec
type CodecOption func(*Codec)

// WithIssuer sets the iss claim written on issue and required on verify
func WithIssuer(iss string) CodecOption {
	return func(c *Codec) {
		c.issuer = iss
	}
}

// NewCodec creates an HS256 codec. The secret is copied.
func NewCodec(secret []byte, policy *ClaimsPolicy, opts ...CodecOption) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrSecretTooShort
	}
	if policy == nil {
		return nil, ErrMissingPolicy
	}

	c := &Codec{
		method: jwt.SigningMethodHS256,
		secret: append([]byte(nil), secret...),
		policy: policy,
	}
	for _, opt := range opts {
		opt(c)
	}

	// Expiry is judged by the policy after the signature has been checked.
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	return c, nil
}

// Policy returns the claims policy the codec judges expiry with
func (c *Codec) Policy() *ClaimsPolicy {
	return c.policy
}

// Issue signs claims into a compact token string. IssuedAt and ExpiresAt
// must be whole seconds, the precision of the token's NumericDate fields.
func (c *Codec) Issue(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidClaims)
	}
	if claims.IssuedAt.IsZero() {
		return "", fmt.Errorf("%w: missing issued-at", ErrInvalidClaims)
	}
	if !wholeSecond(claims.IssuedAt) || !wholeSecond(claims.ExpiresAt) {
		return "", fmt.Errorf("%w: times must be whole seconds", ErrInvalidClaims)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt) {
		return "", fmt.Errorf("%w: expiry must be after issued-at", ErrInvalidClaims)
	}
	for key, v := range claims.Extra {
		if !isJSONValue(v) {
			return "", fmt.Errorf("%w: extra %q has non-JSON type %T", ErrInvalidClaims, key, v)
		}
	}

	token := jwt.NewWithClaims(c.method, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        claims.ID,
			Subject:   claims.Subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		Extra: claims.Extra,
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature of tokenString and returns its claims.
// No claim is read before the MAC has been confirmed.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	tc := &tokenClaims{}
	token, err := c.parser.ParseWithClaims(tokenString, tc, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if !token.Valid {
		return Claims{}, ErrInvalidSignature
	}

	if tc.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing sub", ErrMalformed)
	}
	if tc.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp", ErrMalformed)
	}
	if c.issuer != "" && tc.Issuer != c.issuer {
		return Claims{}, fmt.Errorf("%w: unexpected issuer %q", ErrMalformed, tc.Issuer)
	}

	claims := Claims{
		ID:        tc.ID,
		Subject:   tc.Subject,
		ExpiresAt: tc.ExpiresAt.Time.UTC(),
		Extra:     tc.Extra,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time.UTC()
	}

	if c.policy.IsExpired(claims.ExpiresAt, c.policy.now()) {
		return Claims{}, ErrExpired
	}

	return claims, nil
}

func wholeSecond(t time.Time) bool {
	return t.Nanosecond() == 0
}

// isJSONValue reports whether v already has the type encoding/json decodes
// it back into, so the value survives a token round trip unchanged.
func isJSONValue(v any) bool {
	switch v := v.(type) {
	case nil, string, bool, float64:
		return true
	case []any:
		return slices.IndexFunc(v, func(e any) bool { return !isJSONValue(e) }) < 0
	case map[string]any:
		for _, e := range v {
			if !isJSONValue(e) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// mapJWTError translates jwt library errors to package errors
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// unknown or unusable alg header
		return fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
}
