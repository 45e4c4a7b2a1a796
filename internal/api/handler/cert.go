package handler

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/remotemaster/trustengine/internal/api/dto"
	apierrors "github.com/remotemaster/trustengine/internal/api/errors"
	"github.com/remotemaster/trustengine/internal/crl"
	"github.com/remotemaster/trustengine/internal/issuer"
	"github.com/remotemaster/trustengine/internal/serial"
)

// CertHandler handles certificate issuance and revocation requests.
type CertHandler struct {
	issuer *issuer.Issuer
	ledger *crl.Ledger
}

// NewCertHandler creates a new CertHandler.
func NewCertHandler(iss *issuer.Issuer, ledger *crl.Ledger) *CertHandler {
	return &CertHandler{issuer: iss, ledger: ledger}
}

// Issue handles POST /api/v1/certs/issue
func (h *CertHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req dto.CertIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}
	if req.CSR == nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("CSR is required"))
		return
	}

	csrDER, err := req.CSR.Decode()
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("CSR could not be decoded"))
		return
	}

	cert, err := h.issuer.Issue(r.Context(), csrDER)
	if err != nil {
		respondMappedError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.CertIssueResponse{
		Certificate: base64.StdEncoding.EncodeToString(cert.Raw),
		Serial:      fmt.Sprintf("%040X", cert.SerialNumber),
		Subject:     cert.Subject.String(),
		Issuer:      cert.Issuer.String(),
		NotBefore:   cert.NotBefore.Format(time.RFC3339),
		NotAfter:    cert.NotAfter.Format(time.RFC3339),
	})
}

// Revoke handles POST /api/v1/certs/{serial}/revoke
func (h *CertHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	sn, err := serial.Parse(chi.URLParam(r, "serial"))
	if err != nil {
		respondMappedError(w, err)
		return
	}

	var req dto.CertRevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && r.ContentLength > 0 {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest("Invalid JSON request body"))
		return
	}

	reason, err := crl.ParseRevocationReason(req.Reason)
	if err != nil {
		respondError(w, http.StatusBadRequest, apierrors.NewBadRequest(err.Error()))
		return
	}

	if err := h.ledger.Revoke(sn, reason); err != nil {
		respondMappedError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.CertRevokeResponse{
		Serial: sn.String(),
		Reason: reason.String(),
		Status: "revoked",
	})
}
