// Package serial provides generation and validation of certificate serial numbers.
//
// Serial numbers are 20 bytes of cryptographically secure randomness rendered
// as 40 uppercase hexadecimal characters. The same representation is used for
// CRL entries and for opaque identifiers elsewhere in the trust engine.
package serial

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	// ByteLen is the number of random bytes in a generated serial.
	ByteLen = 20

	// GeneratedLen is the hex-encoded length of a generated serial.
	GeneratedLen = 2 * ByteLen

	// MinLen and MaxLen bound serials accepted by Parse. Foreign serials
	// (issued by other tooling) may be shorter or longer than our own.
	MinLen = 8
	MaxLen = 64
)

// ErrInvalidFormat indicates a serial number string failed validation.
// Use errors.Is() to check for it through the error chain.
var ErrInvalidFormat = errors.New("invalid serial number format")

// SerialNumber is an immutable, fixed-width hexadecimal identifier.
// The zero value is not a valid serial; use Generate or Parse.
type SerialNumber struct {
	value string
}

// Generate returns a new serial number from the cryptographic random source.
// It is safe for concurrent use; there is no shared mutable state.
func Generate() (SerialNumber, error) {
	buf := make([]byte, ByteLen)
	if _, err := rand.Read(buf); err != nil {
		return SerialNumber{}, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return SerialNumber{value: strings.ToUpper(hex.EncodeToString(buf))}, nil
}

// MustGenerate is like Generate but panics on failure.
// Random source failure is unrecoverable for the process.
func MustGenerate() SerialNumber {
	s, err := Generate()
	if err != nil {
		panic(err)
	}
	return s
}

// Parse validates an existing serial number string.
// The input must be non-blank, within length bounds, and hex-only.
func Parse(s string) (SerialNumber, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return SerialNumber{}, fmt.Errorf("%w: must not be empty", ErrInvalidFormat)
	}
	if len(trimmed) < MinLen {
		return SerialNumber{}, fmt.Errorf("%w: length %d is below minimum %d", ErrInvalidFormat, len(trimmed), MinLen)
	}
	if len(trimmed) > MaxLen {
		return SerialNumber{}, fmt.Errorf("%w: length %d exceeds maximum %d", ErrInvalidFormat, len(trimmed), MaxLen)
	}
	for _, c := range trimmed {
		if !isHex(c) {
			return SerialNumber{}, fmt.Errorf("%w: must contain only hexadecimal characters", ErrInvalidFormat)
		}
	}
	return SerialNumber{value: trimmed}, nil
}

func isHex(c rune) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'f':
		return true
	case c >= 'A' && c <= 'F':
		return true
	}
	return false
}

// String returns the serial as stored.
func (s SerialNumber) String() string {
	return s.value
}

// IsZero reports whether the serial is the zero value.
func (s SerialNumber) IsZero() bool {
	return s.value == ""
}

// Bytes returns the decoded serial bytes.
func (s SerialNumber) Bytes() []byte {
	// Odd-length serials (possible via Parse) get a leading zero nibble.
	v := s.value
	if len(v)%2 != 0 {
		v = "0" + v
	}
	b, err := hex.DecodeString(v)
	if err != nil {
		// Unreachable: construction guarantees hex content.
		return nil
	}
	return b
}

// BigInt returns the serial as a big integer for use in X.509 structures.
func (s SerialNumber) BigInt() *big.Int {
	return new(big.Int).SetBytes(s.Bytes())
}

// Equal reports whether two serials have the same stored form.
func (s SerialNumber) Equal(other SerialNumber) bool {
	return s.value == other.value
}
