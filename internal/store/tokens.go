package store

import (
	"bytes"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"go.etcd.io/bbolt"
)

// userTokenKey builds the user-index key userID\x00tokenID.
func userTokenKey(userID, tokenID string) []byte {
	key := make([]byte, 0, len(userID)+1+len(tokenID))
	key = append(key, userID...)
	key = append(key, 0)
	key = append(key, tokenID...)
	return key
}

func putToken(tx *bbolt.Tx, rec *RefreshToken) error {
	data, err := encMode.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode refresh token: %w", err)
	}
	if err := tx.Bucket(bucketTokens).Put([]byte(rec.ID), data); err != nil {
		return err
	}
	if err := tx.Bucket(bucketTokenValues).Put([]byte(rec.Token), []byte(rec.ID)); err != nil {
		return err
	}
	return tx.Bucket(bucketUserTokens).Put(userTokenKey(rec.UserID, rec.ID), nil)
}

func getToken(tx *bbolt.Tx, id string) (*RefreshToken, error) {
	data := tx.Bucket(bucketTokens).Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("refresh token %s: %w", id, ErrNotFound)
	}
	var rec RefreshToken
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode refresh token: %w", err)
	}
	return &rec, nil
}

// CreateRefreshToken inserts a new refresh-token row. Both the row id and
// the opaque token value are uniqueness-guarded.
func (s *Store) CreateRefreshToken(rec *RefreshToken) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketTokens).Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("refresh token %s: %w", rec.ID, ErrAlreadyExists)
		}
		if tx.Bucket(bucketTokenValues).Get([]byte(rec.Token)) != nil {
			return fmt.Errorf("refresh token value: %w", ErrAlreadyExists)
		}
		return putToken(tx, rec)
	})
}

// GetRefreshToken returns a refresh-token row by id.
func (s *Store) GetRefreshToken(id string) (*RefreshToken, error) {
	var rec *RefreshToken
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = getToken(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// GetRefreshTokenByValue returns the row holding the given opaque token.
func (s *Store) GetRefreshTokenByValue(token string) (*RefreshToken, error) {
	var rec *RefreshToken
	err := s.db.View(func(tx *bbolt.Tx) error {
		id := tx.Bucket(bucketTokenValues).Get([]byte(token))
		if id == nil {
			return fmt.Errorf("refresh token: %w", ErrNotFound)
		}
		var err error
		rec, err = getToken(tx, string(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// RotateRefreshToken atomically revokes the old row (reason "replaced",
// forward pointer to the new row) and inserts its replacement. A reader
// never observes both rows active or the old row revoked without a
// successor.
func (s *Store) RotateRefreshToken(oldID string, newRec *RefreshToken, now time.Time) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		old, err := getToken(tx, oldID)
		if err != nil {
			return err
		}
		if old.IsRevoked() {
			return fmt.Errorf("refresh token %s already revoked: %w", oldID, ErrAlreadyExists)
		}
		if tx.Bucket(bucketTokens).Get([]byte(newRec.ID)) != nil {
			return fmt.Errorf("refresh token %s: %w", newRec.ID, ErrAlreadyExists)
		}

		revokedAt := now.UTC()
		old.RevokedAt = &revokedAt
		old.Reason = RevokeReasonReplaced
		old.ReplacedByID = newRec.ID
		if err := putToken(tx, old); err != nil {
			return err
		}
		return putToken(tx, newRec)
	})
}

// RevokeUserRefreshTokens marks every active token belonging to the user
// as revoked with the given reason. Already-revoked and expired tokens are
// untouched, making the operation idempotent. Returns the number of rows
// revoked.
func (s *Store) RevokeUserRefreshTokens(userID string, reason RevokeReason, now time.Time) (int, error) {
	revoked := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		prefix := append([]byte(userID), 0)
		c := tx.Bucket(bucketUserTokens).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			id := string(k[len(prefix):])
			rec, err := getToken(tx, id)
			if err != nil {
				return err
			}
			if !rec.IsActive(now) {
				continue
			}
			revokedAt := now.UTC()
			rec.RevokedAt = &revokedAt
			rec.Reason = reason
			if err := putToken(tx, rec); err != nil {
				return err
			}
			revoked++
		}
		return nil
	})
	return revoked, err
}

// ListUserRefreshTokens returns every token row belonging to the user.
func (s *Store) ListUserRefreshTokens(userID string) ([]RefreshToken, error) {
	var out []RefreshToken
	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := append([]byte(userID), 0)
		c := tx.Bucket(bucketUserTokens).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			rec, err := getToken(tx, string(k[len(prefix):]))
			if err != nil {
				return err
			}
			out = append(out, *rec)
		}
		return nil
	})
	return out, err
}
