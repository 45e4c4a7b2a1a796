// Package errors provides error handling and HTTP status code mapping.
package errors

import (
	"errors"
	"net/http"

	"github.com/remotemaster/trustengine/internal/api/dto"
	"github.com/remotemaster/trustengine/internal/certstore"
	"github.com/remotemaster/trustengine/internal/crl"
	"github.com/remotemaster/trustengine/internal/issuer"
	"github.com/remotemaster/trustengine/internal/serial"
	"github.com/remotemaster/trustengine/internal/signingkey"
	"github.com/remotemaster/trustengine/internal/store"
	"github.com/remotemaster/trustengine/internal/token"
)

// Error codes for API responses.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeInvalidCSR      = "INVALID_CSR"
	CodeInvalidSerial   = "INVALID_SERIAL"
	CodeCACSRNotAllowed = "CA_CSR_NOT_ALLOWED"
	CodeCANotFound      = "CA_NOT_FOUND"
	CodeKeyNotFound     = "KEY_NOT_FOUND"
	CodeCRLNotGenerated = "CRL_NOT_GENERATED"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternal        = "INTERNAL_ERROR"
)

// MapError maps an internal error to an HTTP status code and APIError.
func MapError(err error) (int, *dto.APIError) {
	if err == nil {
		return http.StatusOK, nil
	}

	switch {
	case errors.Is(err, issuer.ErrCACSRNotAllowed):
		return http.StatusForbidden, &dto.APIError{
			Code:    CodeCACSRNotAllowed,
			Message: err.Error(),
		}
	case errors.Is(err, issuer.ErrInvalidCSR):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeInvalidCSR,
			Message: err.Error(),
		}
	case errors.Is(err, serial.ErrInvalidFormat):
		return http.StatusBadRequest, &dto.APIError{
			Code:    CodeInvalidSerial,
			Message: err.Error(),
		}
	case errors.Is(err, certstore.ErrCANotFound):
		return http.StatusNotFound, &dto.APIError{
			Code:    CodeCANotFound,
			Message: err.Error(),
		}
	case errors.Is(err, signingkey.ErrKeyNotFound):
		return http.StatusNotFound, &dto.APIError{
			Code:    CodeKeyNotFound,
			Message: err.Error(),
		}
	case errors.Is(err, crl.ErrNoCRLYet):
		return http.StatusNotFound, &dto.APIError{
			Code:    CodeCRLNotGenerated,
			Message: err.Error(),
		}
	case errors.Is(err, token.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, &dto.APIError{
			Code:    CodeUnauthorized,
			Message: err.Error(),
		}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, &dto.APIError{
			Code:    CodeNotFound,
			Message: err.Error(),
		}
	}

	// Check for IssueError with operation context
	var issueErr *issuer.IssueError
	if errors.As(err, &issueErr) {
		return http.StatusInternalServerError, &dto.APIError{
			Code:    CodeInternal,
			Message: issueErr.Error(),
			Details: map[string]string{
				"operation": issueErr.Op,
				"serial":    issueErr.Serial,
			},
		}
	}

	// Default internal error
	return http.StatusInternalServerError, &dto.APIError{
		Code:    CodeInternal,
		Message: "An internal error occurred",
	}
}

// NewBadRequest creates a bad request error.
func NewBadRequest(message string) *dto.APIError {
	return &dto.APIError{
		Code:    CodeInvalidRequest,
		Message: message,
	}
}
