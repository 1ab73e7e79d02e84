// Package jwtverifier validates RS256 bearer tokens against a JWKS endpoint
// and extracts the authenticated subject.
package jwtverifier

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Tominouu/covoit/internal/platform/config"
	clockport "github.com/Tominouu/covoit/internal/ports/out/clock"
)

var ErrUnauthorized = errors.New("unauthorized")

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Verifier struct {
	cfg    config.JWTConfig
	client *http.Client
	clock  clockport.Clock

	mu          sync.Mutex
	keysByKID   map[string]*rsa.PublicKey
	lastRefresh time.Time
}

func New(cfg config.JWTConfig) *Verifier {
	return NewWithOptions(cfg, nil, nil)
}

func NewWithOptions(cfg config.JWTConfig, httpClient *http.Client, clk clockport.Clock) *Verifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if clk == nil {
		clk = realClock{}
	}
	return &Verifier{
		cfg:       cfg,
		client:    httpClient,
		clock:     clk,
		keysByKID: map[string]*rsa.PublicKey{},
	}
}

type header struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

type claims struct {
	Iss string          `json:"iss"`
	Sub string          `json:"sub"`
	Aud json.RawMessage `json:"aud"`
	Exp *int64          `json:"exp"`
	Nbf *int64          `json:"nbf"`
}

// Verify checks the token's signature, issuer, audience and validity window,
// and returns the `sub` claim. All failures map to ErrUnauthorized; callers
// must not leak the reason to clients.
func (v *Verifier) Verify(ctx context.Context, token string) (string, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", ErrUnauthorized
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", ErrUnauthorized
	}
	var h header
	if err := json.Unmarshal(headerJSON, &h); err != nil || h.Alg != "RS256" || h.Kid == "" {
		return "", ErrUnauthorized
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", ErrUnauthorized
	}
	var c claims
	if err := json.Unmarshal(claimsJSON, &c); err != nil {
		return "", ErrUnauthorized
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return "", ErrUnauthorized
	}

	key, err := v.keyForKID(ctx, h.Kid)
	if err != nil {
		return "", ErrUnauthorized
	}
	digest := sha256.Sum256([]byte(parts[0] + "." + parts[1]))
	if err := rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig); err != nil {
		return "", ErrUnauthorized
	}

	if c.Iss != v.cfg.Issuer || !audienceMatches(c.Aud, v.cfg.Audience) {
		return "", ErrUnauthorized
	}
	now := v.clock.Now()
	if c.Exp == nil || now.After(time.Unix(*c.Exp, 0).Add(v.cfg.ClockSkew)) {
		return "", ErrUnauthorized
	}
	if c.Nbf != nil && now.Add(v.cfg.ClockSkew).Before(time.Unix(*c.Nbf, 0)) {
		return "", ErrUnauthorized
	}
	if c.Sub == "" {
		return "", ErrUnauthorized
	}
	return c.Sub, nil
}

// keyForKID serves from the cache, refreshing from the JWKS endpoint when the
// kid is unknown or the cache has aged past the refresh interval.
func (v *Verifier) keyForKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.clock.Now()
	key, ok := v.keysByKID[kid]
	if ok && now.Sub(v.lastRefresh) < v.cfg.JWKSRefreshInterval {
		return key, nil
	}

	if err := v.refreshLocked(ctx); err != nil {
		// Keep serving a cached key if refresh fails and we still have one.
		if ok {
			return key, nil
		}
		return nil, err
	}
	key, ok = v.keysByKID[kid]
	if !ok {
		return nil, fmt.Errorf("unknown kid %q", kid)
	}
	return key, nil
}

type jwksDocument struct {
	Keys []struct {
		Kty string `json:"kty"`
		Kid string `json:"kid"`
		Use string `json:"use"`
		N   string `json:"n"`
		E   string `json:"e"`
	} `json:"keys"`
}

func (v *Verifier) refreshLocked(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.JWKSURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwks fetch: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var doc jwksDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return err
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := rsaKeyFromJWK(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	v.keysByKID = keys
	v.lastRefresh = v.clock.Now()
	return nil
}

func rsaKeyFromJWK(n, e string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, err
	}
	eInt := 0
	for _, b := range eb {
		eInt = eInt<<8 | int(b)
	}
	if eInt == 0 {
		return nil, errors.New("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: eInt}, nil
}

// audienceMatches accepts aud as either a JSON string or an array of strings.
func audienceMatches(raw json.RawMessage, want string) bool {
	if len(raw) == 0 {
		return false
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single == want
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for _, a := range many {
			if a == want {
				return true
			}
		}
	}
	return false
}
