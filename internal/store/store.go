// Package store provides the transactional persistent store backing the
// revocation ledger, CRL metadata, and refresh-token table.
//
// It is backed by a single BBolt database. All check-then-insert and
// revoke-then-insert sequences run inside one BBolt update transaction, so
// concurrent callers acting on the same key cannot observe or create
// intermediate states.
package store

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"
)

// encMode encodes persisted records. Timestamps are stored as RFC 3339
// text so sub-second precision survives a round trip; the default CBOR
// time encoding truncates to whole seconds.
var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Bucket names.
var (
	bucketRevocations = []byte("revocations")
	bucketCRLInfo     = []byte("crlinfo")
	bucketTokens      = []byte("refresh_tokens")
	bucketTokenValues = []byte("refresh_token_values")
	bucketUserTokens  = []byte("user_tokens")
)

// crlInfoKey is the singleton key for the per-CA CRL record.
var crlInfoKey = []byte("current")

// Sentinel errors for store operations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists indicates a uniqueness guard rejected an insert.
	ErrAlreadyExists = errors.New("record already exists")
)

// Store is a BBolt-backed repository. Safe for concurrent use; BBolt
// serializes writers and allows fully parallel readers.
type Store struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) the database at path and ensures all
// buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{
			bucketRevocations, bucketCRLInfo, bucketTokens, bucketTokenValues, bucketUserTokens,
		} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize store buckets: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertRevocation records a revoked certificate. If a record with the same
// serial already exists it is left untouched and created is false; the
// check and insert run in a single transaction.
func (s *Store) InsertRevocation(rec *RevokedCertificate) (created bool, err error) {
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketRevocations)
		key := []byte(rec.Serial)
		if b.Get(key) != nil {
			return nil // idempotent: keep the original row
		}
		data, err := encMode.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode revocation: %w", err)
		}
		if err := b.Put(key, data); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// GetRevocation returns the revocation record for a serial.
func (s *Store) GetRevocation(serial string) (*RevokedCertificate, error) {
	var rec RevokedCertificate
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRevocations).Get([]byte(serial))
		if data == nil {
			return fmt.Errorf("revocation %s: %w", serial, ErrNotFound)
		}
		return cbor.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListRevocations returns every revocation record.
func (s *Store) ListRevocations() ([]RevokedCertificate, error) {
	var out []RevokedCertificate
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRevocations).ForEach(func(_, v []byte) error {
			var rec RevokedCertificate
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode revocation: %w", err)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// CountRevocations returns the number of revocation records.
func (s *Store) CountRevocations() (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketRevocations).Stats().KeyN
		return nil
	})
	return count, err
}

// GetCRLInfo returns the singleton CRL metadata record.
func (s *Store) GetCRLInfo() (*CRLInfo, error) {
	var info CRLInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCRLInfo).Get(crlInfoKey)
		if data == nil {
			return fmt.Errorf("crl info: %w", ErrNotFound)
		}
		return cbor.Unmarshal(data, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// PutCRLInfo stores the singleton CRL metadata record.
func (s *Store) PutCRLInfo(info *CRLInfo) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := encMode.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to encode crl info: %w", err)
		}
		return tx.Bucket(bucketCRLInfo).Put(crlInfoKey, data)
	})
}

// NextCRLNumber runs build inside a single update transaction. It reads
// the stored CRL number, increments it, snapshots every revocation
// record, and hands both to build; the CRLInfo build returns is stored
// before the transaction commits. If build fails the transaction rolls
// back and the number is not consumed. BBolt serializes writers, so two
// concurrent callers can never receive the same number.
func (s *Store) NextCRLNumber(build func(number uint64, revoked []RevokedCertificate) (*CRLInfo, error)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		var number uint64
		if data := tx.Bucket(bucketCRLInfo).Get(crlInfoKey); data != nil {
			var current CRLInfo
			if err := cbor.Unmarshal(data, &current); err != nil {
				return fmt.Errorf("failed to decode crl info: %w", err)
			}
			n, err := strconv.ParseUint(current.Number, 10, 64)
			if err != nil {
				return fmt.Errorf("malformed CRL number %q: %w", current.Number, err)
			}
			number = n
		}
		number++

		var revoked []RevokedCertificate
		err := tx.Bucket(bucketRevocations).ForEach(func(_, v []byte) error {
			var rec RevokedCertificate
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode revocation: %w", err)
			}
			revoked = append(revoked, rec)
			return nil
		})
		if err != nil {
			return err
		}

		info, err := build(number, revoked)
		if err != nil {
			return err
		}
		data, err := encMode.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to encode crl info: %w", err)
		}
		return tx.Bucket(bucketCRLInfo).Put(crlInfoKey, data)
	})
}
