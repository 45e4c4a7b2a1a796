package crl

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/remotemaster/trustengine/internal/audit"
	"github.com/remotemaster/trustengine/internal/certstore"
	"github.com/remotemaster/trustengine/internal/serial"
	"github.com/remotemaster/trustengine/internal/store"
)

// DefaultValidity is the CRL next-update window used when none is
// configured.
const DefaultValidity = 7 * 24 * time.Hour

// ErrNoCRLYet indicates CRL metadata was requested before the first
// generation.
var ErrNoCRLYet = errors.New("no CRL has been generated yet")

// Metadata describes the current CRL state.
type Metadata struct {
	Info         store.CRLInfo
	RevokedCount int
}

// Builder generates signed CRLs from the revocation ledger.
//
// The CRL number is read, incremented and written back inside a single
// store transaction, so concurrent generations, even from separate
// Builders over the same store, never mint the same number.
type Builder struct {
	store    *store.Store
	provider *certstore.Provider
	validity time.Duration
}

// NewBuilder creates a Builder. validity of 0 selects DefaultValidity.
func NewBuilder(s *store.Store, provider *certstore.Provider, validity time.Duration) *Builder {
	if validity == 0 {
		validity = DefaultValidity
	}
	return &Builder{store: s, provider: provider, validity: validity}
}

// Generate builds, signs and returns a DER-encoded CRL covering every
// ledger row. Each successful call increments the stored CRL number by
// one and moves the next-update marker forward; a failed signing rolls
// the number back. CA lookup failures propagate unchanged.
func (b *Builder) Generate(ctx context.Context) ([]byte, error) {
	_ = ctx

	ca, err := b.provider.IssuerCertificate()
	if err != nil {
		return nil, err
	}
	caName := ca.Certificate.Subject.CommonName

	var (
		der          []byte
		crlNumber    string
		revokedCount int
	)
	err = b.store.NextCRLNumber(func(number uint64, rows []store.RevokedCertificate) (*store.CRLInfo, error) {
		entries, err := revocationEntries(rows)
		if err != nil {
			return nil, err
		}
		crlNumber = strconv.FormatUint(number, 10)
		revokedCount = len(entries)

		now := time.Now().UTC()
		nextUpdate := now.Add(b.validity)
		template := &x509.RevocationList{
			RevokedCertificateEntries: entries,
			Number:                    new(big.Int).SetUint64(number),
			ThisUpdate:                now,
			NextUpdate:                nextUpdate,
		}

		der, err = x509.CreateRevocationList(rand.Reader, template, ca.Certificate, ca.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to create CRL: %w", err)
		}

		sum := sha256.Sum256(der)
		return &store.CRLInfo{
			Number:     crlNumber,
			NextUpdate: nextUpdate,
			Hash:       hex.EncodeToString(sum[:]),
		}, nil
	})
	if err != nil {
		_ = audit.LogCRLGenerated(caName, crlNumber, revokedCount, false)
		return nil, err
	}

	if err := audit.LogCRLGenerated(caName, crlNumber, revokedCount, true); err != nil {
		return nil, err
	}

	return der, nil
}

// Metadata returns the current CRL info and the ledger row count.
// Returns ErrNoCRLYet before the first generation.
func (b *Builder) Metadata() (*Metadata, error) {
	info, err := b.store.GetCRLInfo()
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoCRLYet
		}
		return nil, err
	}
	count, err := b.store.CountRevocations()
	if err != nil {
		return nil, err
	}
	return &Metadata{Info: *info, RevokedCount: count}, nil
}

// revocationEntries converts ledger rows into CRL entries, preserving
// each row's original reason code and revocation time.
func revocationEntries(rows []store.RevokedCertificate) ([]x509.RevocationListEntry, error) {
	entries := make([]x509.RevocationListEntry, 0, len(rows))
	for _, row := range rows {
		sn, err := serial.Parse(row.Serial)
		if err != nil {
			return nil, fmt.Errorf("ledger row %q: %w", row.Serial, err)
		}
		entries = append(entries, x509.RevocationListEntry{
			SerialNumber:   sn.BigInt(),
			RevocationTime: row.RevokedAt,
			ReasonCode:     row.ReasonCode,
		})
	}
	return entries, nil
}
