package token

import (
	"context"
	"errors"
)

// ErrReauthenticationRequired signals that both session tokens are
// invalid and the caller must re-authenticate.
var ErrReauthenticationRequired = errors.New("reauthentication required")

// Storage is where a client keeps its current token pair.
type Storage interface {
	AccessToken() string
	RefreshToken() string
	StoreTokens(access, refresh string) error
	ClearTokens() error
}

// Service is the token-issuer contract the orchestrator decides over.
// *Issuer satisfies it.
type Service interface {
	ValidateAccessToken(tok string) bool
	ValidateRefreshToken(tok string) bool
	Refresh(ctx context.Context, refreshToken, clientIP string) (*TokenData, error)
}

// Orchestrator drives session continuation for a caller holding a
// possibly-stale token pair. It performs no cryptographic work itself.
type Orchestrator struct {
	storage Storage
	service Service
}

// NewOrchestrator creates an Orchestrator over the given storage and
// token service.
func NewOrchestrator(storage Storage, service Service) *Orchestrator {
	return &Orchestrator{storage: storage, service: service}
}

// EnsureAccessToken returns a usable access token:
//
//   - stored access token valid: returned as-is;
//   - access token invalid, refresh token valid: the pair is rotated,
//     stored, and the new access token returned;
//   - both invalid: stored tokens are cleared and
//     ErrReauthenticationRequired is returned.
func (o *Orchestrator) EnsureAccessToken(ctx context.Context, clientIP string) (string, error) {
	if access := o.storage.AccessToken(); o.service.ValidateAccessToken(access) {
		return access, nil
	}

	refresh := o.storage.RefreshToken()
	if o.service.ValidateRefreshToken(refresh) {
		data, err := o.service.Refresh(ctx, refresh, clientIP)
		if err != nil {
			return "", err
		}
		if err := o.storage.StoreTokens(data.AccessToken, data.RefreshToken); err != nil {
			return "", err
		}
		return data.AccessToken, nil
	}

	if err := o.storage.ClearTokens(); err != nil {
		return "", err
	}
	return "", ErrReauthenticationRequired
}
