// Package issuer signs leaf host certificates from certificate signing
// requests.
package issuer

import (
	"errors"
	"fmt"
)

// IssueError wraps an unexpected failure during issuance with operation
// context. Supports errors.Is/As through Unwrap.
type IssueError struct {
	Op     string // "parse", "sign", "lookup"
	Serial string // certificate serial, if assigned
	Err    error
}

func (e *IssueError) Error() string {
	if e.Serial != "" {
		return fmt.Sprintf("issue %s [%s]: %v", e.Op, e.Serial, e.Err)
	}
	return fmt.Sprintf("issue %s: %v", e.Op, e.Err)
}

func (e *IssueError) Unwrap() error { return e.Err }

// Sentinel errors for issuance.
var (
	// ErrInvalidCSR indicates the request bytes are nil, malformed, or
	// carry an invalid signature.
	ErrInvalidCSR = errors.New("invalid CSR")

	// ErrCACSRNotAllowed indicates the CSR requested CA capability.
	// Leaf issuance must never mint a CA-capable certificate.
	ErrCACSRNotAllowed = errors.New("CSR for CA certificates are not allowed")
)
