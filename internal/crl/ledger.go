package crl

import (
	"errors"
	"time"

	"github.com/remotemaster/trustengine/internal/audit"
	"github.com/remotemaster/trustengine/internal/serial"
	"github.com/remotemaster/trustengine/internal/store"
)

// Ledger records revoked certificate serials.
type Ledger struct {
	store  *store.Store
	caName string
}

// NewLedger creates a Ledger backed by the given store. caName is used
// for audit attribution only.
func NewLedger(s *store.Store, caName string) *Ledger {
	return &Ledger{store: s, caName: caName}
}

// Revoke records the serial as revoked with the given reason and the
// current UTC time. Revoking an already-revoked serial is a no-op: the
// original row keeps its reason and timestamp, and the duplicate attempt
// is only visible in the audit trail. Concurrent calls for the same
// serial cannot produce two rows.
func (l *Ledger) Revoke(sn serial.SerialNumber, reason RevocationReason) error {
	created, err := l.store.InsertRevocation(&store.RevokedCertificate{
		Serial:     sn.String(),
		ReasonCode: int(reason),
		RevokedAt:  time.Now().UTC(),
	})
	if err != nil {
		_ = audit.LogCertRevoked(l.caName, sn.String(), reason.String(), false)
		return err
	}
	if !created {
		// Duplicate revocation. Idempotent success, but leave a trace.
		return audit.LogCertRevoked(l.caName, sn.String(), "already revoked", true)
	}
	return audit.LogCertRevoked(l.caName, sn.String(), reason.String(), true)
}

// IsRevoked reports whether the serial has a ledger row.
func (l *Ledger) IsRevoked(sn serial.SerialNumber) (bool, error) {
	_, err := l.store.GetRevocation(sn.String())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Entries returns every ledger row.
func (l *Ledger) Entries() ([]store.RevokedCertificate, error) {
	return l.store.ListRevocations()
}
