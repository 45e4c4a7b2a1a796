package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/remotemaster/trustengine/internal/api/dto"
	apierrors "github.com/remotemaster/trustengine/internal/api/errors"
	"github.com/remotemaster/trustengine/internal/store"
	"github.com/remotemaster/trustengine/internal/token"
)

// TokenHandler handles session-token requests.
type TokenHandler struct {
	issuer *token.Issuer
}

// NewTokenHandler creates a new TokenHandler.
func NewTokenHandler(iss *token.Issuer) *TokenHandler {
	return &TokenHandler{issuer: iss}
}

// Issue handles POST /api/v1/tokens/issue
func (h *TokenHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("user_id is required"))
		return
	}

	data, err := h.issuer.Generate(r.Context(), req.UserID, clientIP(r))
	if err != nil {
		respondMappedError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, tokenResponse(data))
}

// Refresh handles POST /api/v1/tokens/refresh
func (h *TokenHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}
	if req.RefreshToken == "" {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("refresh_token is required"))
		return
	}

	data, err := h.issuer.Refresh(r.Context(), req.RefreshToken, clientIP(r))
	if err != nil {
		respondMappedError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse(data))
}

// RevokeAll handles POST /api/v1/tokens/revoke
func (h *TokenHandler) RevokeAll(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenRevokeAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("user_id is required"))
		return
	}

	reason := store.RevokeReason(req.Reason)
	switch reason {
	case store.RevokeReasonNone, store.RevokeReasonLoggedOut, store.RevokeReasonAdmin:
	default:
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("unknown revocation reason"))
		return
	}
	if reason == store.RevokeReasonNone {
		reason = store.RevokeReasonAdmin
	}

	if err := h.issuer.RevokeAll(r.Context(), req.UserID, reason); err != nil {
		respondMappedError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate handles POST /api/v1/tokens/validate
func (h *TokenHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req dto.TokenValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}
	respondJSON(w, http.StatusOK, dto.TokenValidateResponse{
		Valid: h.issuer.ValidateAccessToken(req.AccessToken),
	})
}

func tokenResponse(data *token.TokenData) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:      data.AccessToken,
		RefreshToken:     data.RefreshToken,
		AccessExpiresAt:  data.AccessExpiresAt.Format(time.RFC3339),
		RefreshExpiresAt: data.RefreshExpiresAt.Format(time.RFC3339),
	}
}
