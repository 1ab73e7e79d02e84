package jwtverifier_test

import (
	"context"
	"testing"
	"time"

	memclock "github.com/Tominouu/covoit/internal/adapters/memory/clock"
	"github.com/Tominouu/covoit/internal/platform/auth/jwks_testutil"
	"github.com/Tominouu/covoit/internal/platform/auth/jwtverifier"
	"github.com/Tominouu/covoit/internal/platform/config"
)

const (
	testIssuer   = "https://issuer.test/"
	testAudience = "covoit-api"
)

func newVerifier(t *testing.T, kp jwks_testutil.Keypair, now time.Time) (*jwtverifier.Verifier, *memclock.ManualClock) {
	t.Helper()
	srv := jwks_testutil.NewJWKSServer(t, kp)
	clk := memclock.NewManualClock(now)
	cfg := config.JWTConfig{
		Issuer:              testIssuer,
		Audience:            testAudience,
		JWKSURL:             srv.URL,
		ClockSkew:           30 * time.Second,
		JWKSRefreshInterval: 5 * time.Minute,
		HTTPTimeout:         2 * time.Second,
	}
	return jwtverifier.NewWithOptions(cfg, srv.Client(), clk), clk
}

func baseClaims(now time.Time) map[string]any {
	return map[string]any{
		"iss": testIssuer,
		"aud": testAudience,
		"sub": "auth0|someone",
		"exp": now.Add(time.Hour).Unix(),
	}
}

func TestVerify_ValidToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	kp := jwks_testutil.GenerateRSAKeypair(t, "key-1")
	v, _ := newVerifier(t, kp, now)

	token := jwks_testutil.MintRS256JWT(t, kp, baseClaims(now))
	sub, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub != "auth0|someone" {
		t.Fatalf("sub = %q, want auth0|someone", sub)
	}
}

func TestVerify_AudienceArray(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	kp := jwks_testutil.GenerateRSAKeypair(t, "key-1")
	v, _ := newVerifier(t, kp, now)

	claims := baseClaims(now)
	claims["aud"] = []string{"other", testAudience}
	token := jwks_testutil.MintRS256JWT(t, kp, claims)
	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestVerify_RejectsBadTokens(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	kp := jwks_testutil.GenerateRSAKeypair(t, "key-1")
	stranger := jwks_testutil.GenerateRSAKeypair(t, "key-1")
	v, _ := newVerifier(t, kp, now)

	expired := baseClaims(now)
	expired["exp"] = now.Add(-time.Hour).Unix()

	wrongIssuer := baseClaims(now)
	wrongIssuer["iss"] = "https://evil.test/"

	wrongAudience := baseClaims(now)
	wrongAudience["aud"] = "someone-else"

	notYetValid := baseClaims(now)
	notYetValid["nbf"] = now.Add(time.Hour).Unix()

	noSub := baseClaims(now)
	delete(noSub, "sub")

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"expired", jwks_testutil.MintRS256JWT(t, kp, expired)},
		{"wrong issuer", jwks_testutil.MintRS256JWT(t, kp, wrongIssuer)},
		{"wrong audience", jwks_testutil.MintRS256JWT(t, kp, wrongAudience)},
		{"not yet valid", jwks_testutil.MintRS256JWT(t, kp, notYetValid)},
		{"missing sub", jwks_testutil.MintRS256JWT(t, kp, noSub)},
		{"wrong key", jwks_testutil.MintRS256JWT(t, stranger, baseClaims(now))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := v.Verify(context.Background(), tc.token); err == nil {
				t.Fatal("Verify accepted an invalid token")
			}
		})
	}
}

func TestVerify_ClockSkewTolerance(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	kp := jwks_testutil.GenerateRSAKeypair(t, "key-1")
	v, clk := newVerifier(t, kp, now)

	claims := baseClaims(now)
	token := jwks_testutil.MintRS256JWT(t, kp, claims)

	// Just inside the skew window past expiry.
	clk.Set(now.Add(time.Hour + 20*time.Second))
	if _, err := v.Verify(context.Background(), token); err != nil {
		t.Fatalf("Verify within skew: %v", err)
	}

	clk.Set(now.Add(time.Hour + time.Minute))
	if _, err := v.Verify(context.Background(), token); err == nil {
		t.Fatal("Verify accepted a token past skew")
	}
}

func TestVerify_RefreshPicksUpRotatedKey(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	old := jwks_testutil.GenerateRSAKeypair(t, "key-old")
	rotated := jwks_testutil.GenerateRSAKeypair(t, "key-new")
	srv := jwks_testutil.NewJWKSServer(t, old, rotated)

	clk := memclock.NewManualClock(now)
	v := jwtverifier.NewWithOptions(config.JWTConfig{
		Issuer:              testIssuer,
		Audience:            testAudience,
		JWKSURL:             srv.URL,
		ClockSkew:           30 * time.Second,
		JWKSRefreshInterval: 5 * time.Minute,
		HTTPTimeout:         2 * time.Second,
	}, srv.Client(), clk)

	// First token warms the cache with both kids; second exercises the lookup.
	for _, kp := range []jwks_testutil.Keypair{old, rotated} {
		token := jwks_testutil.MintRS256JWT(t, kp, baseClaims(now))
		if _, err := v.Verify(context.Background(), token); err != nil {
			t.Fatalf("Verify with kid %s: %v", kp.Kid, err)
		}
	}
}
