// Package token mints and validates session token pairs: a short-lived
// signed access token and a long-lived opaque refresh token with an
// atomic rotation chain.
package token

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/remotemaster/trustengine/internal/audit"
	"github.com/remotemaster/trustengine/internal/claims"
	"github.com/remotemaster/trustengine/internal/signingkey"
	"github.com/remotemaster/trustengine/internal/store"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour

	// refreshTokenBytes is the entropy of the opaque refresh token.
	refreshTokenBytes = 64
)

// ErrInvalidRefreshToken indicates the presented refresh token does not
// exist, is expired, or has been revoked.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// TokenData is the transient result of issuance or rotation.
type TokenData struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// accessClaims is the access-token payload: registered claims plus the
// role and permission claims collected from the claims provider.
type accessClaims struct {
	jwt.RegisteredClaims
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// Config carries the token issuance parameters.
type Config struct {
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Issuer mints access/refresh token pairs and checks their validity.
type Issuer struct {
	keys   *signingkey.Store
	store  *store.Store
	claims claims.Provider
	cfg    Config
}

// NewIssuer creates an Issuer over the signing-key store, the persistent
// store and the claims provider.
func NewIssuer(keys *signingkey.Store, s *store.Store, cp claims.Provider, cfg Config) *Issuer {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &Issuer{keys: keys, store: s, claims: cp, cfg: cfg}
}

// Generate mints a fresh token pair for userID and persists the refresh
// token row with the issuing IP.
func (i *Issuer) Generate(ctx context.Context, userID, clientIP string) (*TokenData, error) {
	data, rec, err := i.mint(ctx, userID, clientIP)
	if err != nil {
		_ = audit.LogTokenIssued(userID, clientIP, false)
		return nil, err
	}
	if err := i.store.CreateRefreshToken(rec); err != nil {
		_ = audit.LogTokenIssued(userID, clientIP, false)
		return nil, fmt.Errorf("failed to persist refresh token: %w", err)
	}
	if err := audit.LogTokenIssued(userID, clientIP, true); err != nil {
		return nil, err
	}
	return data, nil
}

// Refresh exchanges a still-active refresh token for a fresh pair. The
// old row is revoked with reason "replaced" and linked to its successor
// in the same transaction as the insert, so a reader never observes both
// rows active.
func (i *Issuer) Refresh(ctx context.Context, refreshToken, clientIP string) (*TokenData, error) {
	old, err := i.store.GetRefreshTokenByValue(refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = audit.LogAuthFailed("", "unknown refresh token")
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !old.IsActive(time.Now()) {
		_ = audit.LogAuthFailed(old.UserID, "refresh token expired or revoked")
		return nil, ErrInvalidRefreshToken
	}

	data, rec, err := i.mint(ctx, old.UserID, clientIP)
	if err != nil {
		_ = audit.LogTokenRotated(old.UserID, clientIP, false)
		return nil, err
	}
	if err := i.store.RotateRefreshToken(old.ID, rec, time.Now()); err != nil {
		_ = audit.LogTokenRotated(old.UserID, clientIP, false)
		// A concurrent caller rotated or revoked the row between our
		// lookup and the rotation: treat the loser as a replay.
		if errors.Is(err, store.ErrAlreadyExists) || errors.Is(err, store.ErrNotFound) {
			_ = audit.LogAuthFailed(old.UserID, "refresh token replay")
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if err := audit.LogTokenRotated(old.UserID, clientIP, true); err != nil {
		return nil, err
	}
	return data, nil
}

// RevokeAll revokes every active refresh token belonging to userID.
// Idempotent: re-invoking on an already-revoked set changes nothing.
func (i *Issuer) RevokeAll(ctx context.Context, userID string, reason store.RevokeReason) error {
	_ = ctx
	count, err := i.store.RevokeUserRefreshTokens(userID, reason, time.Now())
	if err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return audit.LogTokensRevoked(userID, string(reason), count)
}

// ValidateAccessToken verifies signature, expiry, issuer and audience
// against the signing-key store's public key. Malformed input yields
// false, never a panic.
func (i *Issuer) ValidateAccessToken(tok string) bool {
	if tok == "" {
		return false
	}
	pub, err := i.keys.PublicKey()
	if err != nil {
		return false
	}
	_, err = jwt.ParseWithClaims(tok, &accessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return pub, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	return err == nil
}

// ValidateRefreshToken reports whether the opaque token exists and is
// still active (neither revoked nor expired).
func (i *Issuer) ValidateRefreshToken(tok string) bool {
	if tok == "" {
		return false
	}
	rec, err := i.store.GetRefreshTokenByValue(tok)
	if err != nil {
		return false
	}
	return rec.IsActive(time.Now())
}

// mint builds a signed access token and a fresh refresh-token row
// without persisting anything.
func (i *Issuer) mint(ctx context.Context, userID, clientIP string) (*TokenData, *store.RefreshToken, error) {
	_ = ctx

	signer, err := i.keys.Signer()
	if err != nil {
		return nil, nil, err
	}
	key, ok := signer.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("signing key is %T, expected RSA", signer)
	}

	userClaims, err := i.claims.ClaimsForUser(userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to collect claims for %s: %w", userID, err)
	}

	now := time.Now().UTC()
	accessExpiry := now.Add(i.cfg.AccessTTL)
	refreshExpiry := now.Add(i.cfg.RefreshTTL)

	payload := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
			ID:        uuid.NewString(),
		},
	}
	for _, c := range userClaims {
		switch c.Type {
		case claims.TypeRole:
			payload.Roles = append(payload.Roles, c.Value)
		case claims.TypePermission:
			payload.Permissions = append(payload.Permissions, c.Value)
		}
	}

	access, err := jwt.NewWithClaims(jwt.SigningMethodRS256, payload).SignedString(key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refresh, err := newOpaqueToken()
	if err != nil {
		return nil, nil, err
	}

	rec := &store.RefreshToken{
		ID:          uuid.NewString(),
		UserID:      userID,
		Token:       refresh,
		CreatedAt:   now,
		CreatedByIP: clientIP,
		ExpiresAt:   refreshExpiry,
	}
	data := &TokenData{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}
	return data, rec, nil
}

// newOpaqueToken returns a cryptographically random base64url string.
func newOpaqueToken() (string, error) {
	b := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
