package store

import "time"

// RevokedCertificate is a ledger row for a revoked certificate serial.
// Rows are created once per serial and never mutated.
type RevokedCertificate struct {
	// Serial is the certificate serial number (uppercase hex).
	Serial string `cbor:"1,keyasint"`

	// ReasonCode is the RFC 5280 revocation reason code.
	ReasonCode int `cbor:"2,keyasint"`

	// RevokedAt is the UTC revocation timestamp.
	RevokedAt time.Time `cbor:"3,keyasint"`
}

// CRLInfo is the singleton per-CA CRL metadata record, mutated on every
// successful CRL generation.
type CRLInfo struct {
	// Number is the CRL sequence number as a decimal string.
	// It increments by one per generation and never resets.
	Number string `cbor:"1,keyasint"`

	// NextUpdate is the scheduled next CRL regeneration time.
	NextUpdate time.Time `cbor:"2,keyasint"`

	// Hash is the hex SHA-256 of the last published CRL body.
	Hash string `cbor:"3,keyasint"`
}

// RevokeReason enumerates why a refresh token was revoked.
type RevokeReason string

const (
	RevokeReasonNone      RevokeReason = ""
	RevokeReasonLoggedOut RevokeReason = "logged_out"
	RevokeReasonReplaced  RevokeReason = "replaced"
	RevokeReasonAdmin     RevokeReason = "admin"
)

// RefreshToken is a persisted refresh-token row. Rotation links rows into
// a forward-only chain through ReplacedByID; a revoked row never points
// back at its predecessor.
type RefreshToken struct {
	ID          string       `cbor:"1,keyasint"`
	UserID      string       `cbor:"2,keyasint"`
	Token       string       `cbor:"3,keyasint"`
	CreatedAt   time.Time    `cbor:"4,keyasint"`
	CreatedByIP string       `cbor:"5,keyasint"`
	ExpiresAt   time.Time    `cbor:"6,keyasint"`
	RevokedAt   *time.Time   `cbor:"7,keyasint,omitempty"`
	Reason      RevokeReason `cbor:"8,keyasint,omitempty"`

	// ReplacedByID points at the token that superseded this one.
	ReplacedByID string `cbor:"9,keyasint,omitempty"`
}

// IsExpired reports whether the token's lifetime has passed.
func (t *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// IsRevoked reports whether the token has been explicitly revoked.
func (t *RefreshToken) IsRevoked() bool {
	return t.RevokedAt != nil
}

// IsActive reports whether the token can still be exchanged.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return !t.IsRevoked() && !t.IsExpired(now)
}
