package dto

// TokenIssueRequest mints a token pair for a user.
type TokenIssueRequest struct {
	UserID string `json:"user_id"`
}

// TokenRefreshRequest exchanges a refresh token for a fresh pair.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse returns an issued or rotated token pair.
type TokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	AccessExpiresAt  string `json:"access_expires_at"`  // RFC3339
	RefreshExpiresAt string `json:"refresh_expires_at"` // RFC3339
}

// TokenRevokeAllRequest revokes every active refresh token of a user.
type TokenRevokeAllRequest struct {
	UserID string `json:"user_id"`

	// Reason is "logged_out", "admin" or empty.
	Reason string `json:"reason,omitempty"`
}

// TokenValidateRequest checks an access token.
type TokenValidateRequest struct {
	AccessToken string `json:"access_token"`
}

// TokenValidateResponse reports access-token validity.
type TokenValidateResponse struct {
	Valid bool `json:"valid"`
}
