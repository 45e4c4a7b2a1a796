package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memTokenStorage is a client-side token store fake.
type memTokenStorage struct {
	access  string
	refresh string
	cleared bool
}

func (m *memTokenStorage) AccessToken() string  { return m.access }
func (m *memTokenStorage) RefreshToken() string { return m.refresh }

func (m *memTokenStorage) StoreTokens(access, refresh string) error {
	m.access = access
	m.refresh = refresh
	return nil
}

func (m *memTokenStorage) ClearTokens() error {
	m.access = ""
	m.refresh = ""
	m.cleared = true
	return nil
}

// scriptedService fakes the token issuer for decision-procedure tests.
type scriptedService struct {
	validAccess   map[string]bool
	validRefresh  map[string]bool
	refreshResult *TokenData
	refreshErr    error
	refreshCalls  int
}

func (s *scriptedService) ValidateAccessToken(tok string) bool  { return s.validAccess[tok] }
func (s *scriptedService) ValidateRefreshToken(tok string) bool { return s.validRefresh[tok] }

func (s *scriptedService) Refresh(_ context.Context, _, _ string) (*TokenData, error) {
	s.refreshCalls++
	return s.refreshResult, s.refreshErr
}

func TestEnsureAccessToken_ValidAccessReused(t *testing.T) {
	st := &memTokenStorage{access: "goodAT", refresh: "validRT"}
	svc := &scriptedService{
		validAccess:  map[string]bool{"goodAT": true},
		validRefresh: map[string]bool{"validRT": true},
	}
	orch := NewOrchestrator(st, svc)

	got, err := orch.EnsureAccessToken(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "goodAT", got)
	assert.Zero(t, svc.refreshCalls, "no rotation for a valid access token")
}

func TestEnsureAccessToken_ExpiredAccessRotates(t *testing.T) {
	st := &memTokenStorage{access: "expiredAT", refresh: "validRT"}
	svc := &scriptedService{
		validAccess:  map[string]bool{},
		validRefresh: map[string]bool{"validRT": true},
		refreshResult: &TokenData{
			AccessToken:  "freshAT",
			RefreshToken: "freshRT",
		},
	}
	orch := NewOrchestrator(st, svc)

	got, err := orch.EnsureAccessToken(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "freshAT", got)
	assert.NotEqual(t, "expiredAT", got)
	assert.Equal(t, 1, svc.refreshCalls)

	// The stored pair was replaced with the rotated one.
	assert.Equal(t, "freshAT", st.access)
	assert.Equal(t, "freshRT", st.refresh)
}

func TestEnsureAccessToken_BothInvalidForcesReauth(t *testing.T) {
	st := &memTokenStorage{access: "invalidAT", refresh: "invalidRT"}
	svc := &scriptedService{
		validAccess:  map[string]bool{},
		validRefresh: map[string]bool{},
	}
	orch := NewOrchestrator(st, svc)

	got, err := orch.EnsureAccessToken(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrReauthenticationRequired)
	assert.Empty(t, got)
	assert.True(t, st.cleared)
	assert.Empty(t, st.access)
	assert.Empty(t, st.refresh)
	assert.Zero(t, svc.refreshCalls)
}

func TestEnsureAccessToken_RefreshFailurePropagates(t *testing.T) {
	st := &memTokenStorage{access: "expiredAT", refresh: "staleRT"}
	svc := &scriptedService{
		validAccess:  map[string]bool{},
		validRefresh: map[string]bool{"staleRT": true},
		refreshErr:   ErrInvalidRefreshToken,
	}
	orch := NewOrchestrator(st, svc)

	_, err := orch.EnsureAccessToken(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}
