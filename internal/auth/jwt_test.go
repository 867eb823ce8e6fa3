package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSecret  = []byte("0123456789abcdef0123456789abcdef")
	otherSecret = []byte("fedcba9876543210fedcba9876543210")
	testNow     = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
)

func newTestCodec(t *testing.T, secret []byte, now time.Time, opts ...CodecOption) *Codec {
	t.Helper()

	policy, err := NewClaimsPolicy(time.Hour, WithClock(fixedClock(now)))
	require.NoError(t, err)

	codec, err := NewCodec(secret, policy, opts...)
	require.NoError(t, err)
	return codec
}

func assertClaimsEqual(t *testing.T, want, got Claims) {
	t.Helper()

	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Subject, got.Subject)
	assert.True(t, want.IssuedAt.Equal(got.IssuedAt), "iat: want %s got %s", want.IssuedAt, got.IssuedAt)
	assert.True(t, want.ExpiresAt.Equal(got.ExpiresAt), "exp: want %s got %s", want.ExpiresAt, got.ExpiresAt)
	assert.Equal(t, want.Extra, got.Extra)
}

func TestNewCodec(t *testing.T) {
	policy, err := NewClaimsPolicy(time.Hour)
	require.NoError(t, err)

	t.Run("short secret", func(t *testing.T) {
		_, err := NewCodec([]byte("too-short"), policy)
		assert.ErrorIs(t, err, ErrSecretTooShort)
	})

	t.Run("nil policy", func(t *testing.T) {
		_, err := NewCodec(testSecret, nil)
		assert.ErrorIs(t, err, ErrMissingPolicy)
	})

	t.Run("secret is copied", func(t *testing.T) {
		secret := append([]byte(nil), testSecret...)
		codec, err := NewCodec(secret, policy)
		require.NoError(t, err)

		token, err := codec.Issue(policy.NewClaims("alice", nil))
		require.NoError(t, err)

		secret[0] ^= 0xff
		_, err = codec.Verify(token)
		assert.NoError(t, err)
	})
}

func TestCodec_RoundTrip(t *testing.T) {
	codec := newTestCodec(t, testSecret, testNow)

	claims := codec.Policy().NewClaims("alice@example.com", map[string]any{"role": "USER"})
	token, err := codec.Issue(claims)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	got, err := codec.Verify(token)
	require.NoError(t, err)
	assertClaimsEqual(t, claims, got)

	t.Run("sub-second clock", func(t *testing.T) {
		codec := newTestCodec(t, testSecret, testNow.Add(300*time.Millisecond))

		claims := codec.Policy().NewClaims("alice@example.com", nil)
		token, err := codec.Issue(claims)
		require.NoError(t, err)

		got, err := codec.Verify(token)
		require.NoError(t, err)
		assertClaimsEqual(t, claims, got)
		assert.True(t, got.IssuedAt.Equal(testNow))
	})

	t.Run("JSON-typed extra", func(t *testing.T) {
		claims := codec.Policy().NewClaims("alice@example.com", map[string]any{
			"tags":  []any{"a", "b"},
			"level": float64(3),
			"admin": false,
			"meta":  map[string]any{"team": "core", "note": nil},
		})
		token, err := codec.Issue(claims)
		require.NoError(t, err)

		got, err := codec.Verify(token)
		require.NoError(t, err)
		assertClaimsEqual(t, claims, got)
	})

	t.Run("empty extra is carried as nil", func(t *testing.T) {
		claims := codec.Policy().NewClaims("alice@example.com", map[string]any{})
		assert.Nil(t, claims.Extra)

		token, err := codec.Issue(claims)
		require.NoError(t, err)

		got, err := codec.Verify(token)
		require.NoError(t, err)
		assertClaimsEqual(t, claims, got)
	})
}

func TestCodec_IssueIsDeterministic(t *testing.T) {
	codec := newTestCodec(t, testSecret, testNow)
	claims := codec.Policy().NewClaims("alice@example.com", map[string]any{"a": "1", "b": "2"})

	t1, err := codec.Issue(claims)
	require.NoError(t, err)
	t2, err := codec.Issue(claims)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)

	// fresh claims carry a fresh token id
	t3, err := codec.Issue(codec.Policy().NewClaims("alice@example.com", nil))
	require.NoError(t, err)
	assert.NotEqual(t, t1, t3)
}

func TestCodec_IssueRejectsInvalidClaims(t *testing.T) {
	codec := newTestCodec(t, testSecret, testNow)

	tests := []struct {
		name   string
		claims Claims
	}{
		{
			name:   "empty subject",
			claims: Claims{IssuedAt: testNow, ExpiresAt: testNow.Add(time.Hour)},
		},
		{
			name:   "zero issued-at",
			claims: Claims{Subject: "alice", ExpiresAt: testNow.Add(time.Hour)},
		},
		{
			name:   "expiry equal to issued-at",
			claims: Claims{Subject: "alice", IssuedAt: testNow, ExpiresAt: testNow},
		},
		{
			name:   "expiry before issued-at",
			claims: Claims{Subject: "alice", IssuedAt: testNow, ExpiresAt: testNow.Add(-time.Hour)},
		},
		{
			name: "window inside one second",
			claims: Claims{
				Subject:   "alice",
				IssuedAt:  testNow.Add(100 * time.Millisecond),
				ExpiresAt: testNow.Add(600 * time.Millisecond),
			},
		},
		{
			name: "sub-second issued-at",
			claims: Claims{
				Subject:   "alice",
				IssuedAt:  testNow.Add(300 * time.Millisecond),
				ExpiresAt: testNow.Add(time.Hour),
			},
		},
		{
			name: "sub-second expiry",
			claims: Claims{
				Subject:   "alice",
				IssuedAt:  testNow,
				ExpiresAt: testNow.Add(time.Hour + 700*time.Millisecond),
			},
		},
		{
			name: "extra slice of strings",
			claims: Claims{
				Subject:   "alice",
				IssuedAt:  testNow,
				ExpiresAt: testNow.Add(time.Hour),
				Extra:     map[string]any{"tags": []string{"a"}},
			},
		},
		{
			name: "extra integer",
			claims: Claims{
				Subject:   "alice",
				IssuedAt:  testNow,
				ExpiresAt: testNow.Add(time.Hour),
				Extra:     map[string]any{"level": 3},
			},
		},
		{
			name: "nested extra with named string type",
			claims: Claims{
				Subject:   "alice",
				IssuedAt:  testNow,
				ExpiresAt: testNow.Add(time.Hour),
				Extra:     map[string]any{"meta": map[string]any{"role": RoleAdmin}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := codec.Issue(tt.claims)
			assert.ErrorIs(t, err, ErrInvalidClaims)
			assert.Empty(t, token)
		})
	}
}

func TestCodec_VerifyWrongKey(t *testing.T) {
	issuer := newTestCodec(t, otherSecret, testNow)
	verifier := newTestCodec(t, testSecret, testNow)

	token, err := issuer.Issue(issuer.Policy().NewClaims("alice", nil))
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestCodec_VerifyExpiry(t *testing.T) {
	codec := newTestCodec(t, testSecret, testNow)

	tests := []struct {
		name      string
		issuedAt  time.Time
		expiresAt time.Time
		wantErr   error
	}{
		{
			name:      "expired an hour ago",
			issuedAt:  testNow.Add(-2 * time.Hour),
			expiresAt: testNow.Add(-time.Hour),
			wantErr:   ErrExpired,
		},
		{
			name:      "expires exactly now",
			issuedAt:  testNow.Add(-time.Hour),
			expiresAt: testNow,
			wantErr:   ErrExpired,
		},
		{
			name:      "expires in one second",
			issuedAt:  testNow.Add(-time.Hour),
			expiresAt: testNow.Add(time.Second),
		},
		{
			name:      "expires in a day",
			issuedAt:  testNow,
			expiresAt: testNow.Add(24 * time.Hour),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := Claims{ID: "id-1", Subject: "alice", IssuedAt: tt.issuedAt, ExpiresAt: tt.expiresAt}
			token, err := codec.Issue(claims)
			require.NoError(t, err)

			got, err := codec.Verify(token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assertClaimsEqual(t, claims, got)
		})
	}
}

func TestCodec_VerifyDetectsPayloadTampering(t *testing.T) {
	codec := newTestCodec(t, testSecret, testNow)

	token, err := codec.Issue(codec.Policy().NewClaims("alice@example.com", map[string]any{"role": "USER"}))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload := parts[1]

	for i := 0; i < len(payload); i++ {
		replacement := byte('A')
		if payload[i] == 'A' {
			replacement = 'B'
		}
		tampered := payload[:i] + string(replacement) + payload[i+1:]

		_, err := codec.Verify(parts[0] + "." + tampered + "." + parts[2])
		require.Error(t, err, "tampered byte %d accepted", i)
		assert.True(t,
			errorIsAny(err, ErrInvalidSignature, ErrMalformed),
			"byte %d: unexpected error %v", i, err)
	}
}

func TestCodec_VerifyMalformed(t *testing.T) {
	codec := newTestCodec(t, testSecret, testNow)

	valid, err := codec.Issue(codec.Policy().NewClaims("alice", nil))
	require.NoError(t, err)
	parts := strings.Split(valid, ".")

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "one segment", token: "abc"},
		{name: "two segments", token: parts[0] + "." + parts[1]},
		{name: "four segments", token: valid + ".extra"},
		{name: "bad header encoding", token: "!!!." + parts[1] + "." + parts[2]},
		{name: "header not json", token: "bm90LWpzb24." + parts[1] + "." + parts[2]},
		{name: "payload not json", token: parts[0] + ".bm90LWpzb24." + parts[2]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Verify(tt.token)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestCodec_VerifyRejectsForeignAlgorithms(t *testing.T) {
	codec := newTestCodec(t, testSecret, testNow)
	registered := jwt.RegisteredClaims{
		Subject:   "alice",
		IssuedAt:  jwt.NewNumericDate(testNow),
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	}

	t.Run("HS512", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, registered).SignedString(testSecret)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("none", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, registered).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})
}

func TestCodec_VerifyRequiresSubjectAndExpiry(t *testing.T) {
	codec := newTestCodec(t, testSecret, testNow)

	t.Run("missing sub", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		}).SignedString(testSecret)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("missing exp", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject: "alice",
		}).SignedString(testSecret)
		require.NoError(t, err)

		_, err = codec.Verify(token)
		assert.ErrorIs(t, err, ErrMalformed)
	})
}

func TestCodec_Issuer(t *testing.T) {
	issuing := newTestCodec(t, testSecret, testNow, WithIssuer("security-api"))

	token, err := issuing.Issue(issuing.Policy().NewClaims("alice", nil))
	require.NoError(t, err)

	t.Run("same issuer", func(t *testing.T) {
		_, err := issuing.Verify(token)
		assert.NoError(t, err)
	})

	t.Run("different issuer", func(t *testing.T) {
		other := newTestCodec(t, testSecret, testNow, WithIssuer("someone-else"))
		_, err := other.Verify(token)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("issuer not configured", func(t *testing.T) {
		plain := newTestCodec(t, testSecret, testNow)
		_, err := plain.Verify(token)
		assert.NoError(t, err)
	})
}

func TestCodec_ConcurrentUse(t *testing.T) {
	codec := newTestCodec(t, testSecret, testNow)

	done := make(chan error, 16)
	for i := 0; i < cap(done); i++ {
		go func() {
			token, err := codec.Issue(codec.Policy().NewClaims("alice", nil))
			if err == nil {
				_, err = codec.Verify(token)
			}
			done <- err
		}()
	}
	for i := 0; i < cap(done); i++ {
		assert.NoError(t, <-done)
	}
}

func errorIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
