// Package signingkey manages the asymmetric key pair used to sign session
// access tokens.
//
// The pair is generated once, persisted under a configured directory and
// reloaded on every process start. The private half is encrypted at rest
// with an Argon2id-derived AES-256-GCM key. The Store is an explicitly
// constructed singleton handle; initialization is lazy on first use.
package signingkey

import (
	"crypto"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/remotemaster/trustengine/internal/audit"
	"github.com/remotemaster/trustengine/internal/storage"
)

const (
	privateKeyFile = "token_signing.key"
	publicKeyFile  = "token_signing.pub"

	encryptedKeyPEMType = "ENCRYPTED TOKEN SIGNING KEY"
	publicKeyPEMType    = "PUBLIC KEY"

	// Argon2id parameters for the key-encryption key.
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32

	saltLen = 16

	// DefaultKeyBits is the RSA modulus size used when none is configured.
	DefaultKeyBits = 2048
)

// Sentinel errors for signing key operations.
var (
	// ErrKeyNotFound indicates the requested key file is absent.
	ErrKeyNotFound = errors.New("signing key not found")

	// ErrWrongPassphrase indicates the private key could not be decrypted.
	ErrWrongPassphrase = errors.New("invalid signing key passphrase")
)

// Store loads or lazily generates the token signing key pair.
// Safe for concurrent use.
type Store struct {
	fs         storage.FileSystem
	dir        string
	passphrase []byte
	keyBits    int

	mu     sync.Mutex
	signer *rsa.PrivateKey // cached after first successful load
}

// New creates a Store over the given filesystem and key directory.
// keyBits of 0 selects DefaultKeyBits.
func New(fs storage.FileSystem, dir string, passphrase []byte, keyBits int) *Store {
	if keyBits == 0 {
		keyBits = DefaultKeyBits
	}
	return &Store{
		fs:         fs,
		dir:        dir,
		passphrase: passphrase,
		keyBits:    keyBits,
	}
}

// PrivateKeyPath returns the path of the encrypted private key file.
func (s *Store) PrivateKeyPath() string {
	return filepath.Join(s.dir, privateKeyFile)
}

// PublicKeyPath returns the path of the public key file.
func (s *Store) PublicKeyPath() string {
	return filepath.Join(s.dir, publicKeyFile)
}

// EnsureKeys generates and persists the key pair if it does not exist yet.
// Existing key files are never overwritten. Safe to call at process start
// before any token operation.
func (s *Store) EnsureKeys() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fs.Exists(s.PrivateKeyPath()) {
		// Recreate a missing public key file from the private half
		// rather than failing; the private key is authoritative.
		if !s.fs.Exists(s.PublicKeyPath()) {
			key, err := s.loadPrivateKeyLocked()
			if err != nil {
				return err
			}
			return s.writePublicKey(&key.PublicKey)
		}
		return nil
	}

	if err := s.fs.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	key, err := rsa.GenerateKey(rand.Reader, s.keyBits)
	if err != nil {
		_ = audit.LogKeyGenerated(s.PrivateKeyPath(), fmt.Sprintf("RSA-%d", s.keyBits), false)
		return fmt.Errorf("failed to generate signing key pair: %w", err)
	}

	if err := s.writePrivateKey(key); err != nil {
		return err
	}
	if err := s.writePublicKey(&key.PublicKey); err != nil {
		return err
	}

	if err := audit.LogKeyGenerated(s.PrivateKeyPath(), fmt.Sprintf("RSA-%d", s.keyBits), true); err != nil {
		return err
	}

	s.signer = key
	return nil
}

// Signer returns the private key for access-token signing,
// decrypting and caching it on first use.
func (s *Store) Signer() (crypto.Signer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.signer != nil {
		return s.signer, nil
	}

	key, err := s.loadPrivateKeyLocked()
	if err != nil {
		return nil, err
	}
	s.signer = key

	if err := audit.LogKeyAccessed(s.PrivateKeyPath(), true, "token signing key loaded"); err != nil {
		return nil, err
	}
	return key, nil
}

// PublicKey returns the verification key parsed from the public key file.
func (s *Store) PublicKey() (*rsa.PublicKey, error) {
	data, err := s.PublicKeyPEM()
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != publicKeyPEMType {
		return nil, fmt.Errorf("no public key found in %s", s.PublicKeyPath())
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected public key type %T", pub)
	}
	return rsaPub, nil
}

// PublicKeyPEM returns the raw public key file contents.
func (s *Store) PublicKeyPEM() ([]byte, error) {
	data, err := s.fs.ReadFile(s.PublicKeyPath())
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.PublicKeyPath(), ErrKeyNotFound)
		}
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return data, nil
}

func (s *Store) writePrivateKey(key *rsa.PrivateKey) error {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}

	sealed, err := seal(der, s.passphrase)
	if err != nil {
		return fmt.Errorf("failed to encrypt private key: %w", err)
	}

	block := &pem.Block{Type: encryptedKeyPEMType, Bytes: sealed}
	if err := s.fs.WriteFile(s.PrivateKeyPath(), pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	return nil
}

func (s *Store) writePublicKey(pub *rsa.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}

	block := &pem.Block{Type: publicKeyPEMType, Bytes: der}
	if err := s.fs.WriteFile(s.PublicKeyPath(), pem.EncodeToMemory(block), 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

func (s *Store) loadPrivateKeyLocked() (*rsa.PrivateKey, error) {
	data, err := s.fs.ReadFile(s.PrivateKeyPath())
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", s.PrivateKeyPath(), ErrKeyNotFound)
		}
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil || block.Type != encryptedKeyPEMType {
		return nil, fmt.Errorf("no encrypted signing key found in %s", s.PrivateKeyPath())
	}

	der, err := open(block.Bytes, s.passphrase)
	if err != nil {
		_ = audit.LogKeyAccessed(s.PrivateKeyPath(), false, "signing key decryption failed")
		return nil, fmt.Errorf("%w: %v", ErrWrongPassphrase, err)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unexpected private key type %T", parsed)
	}
	return key, nil
}

// seal encrypts plaintext with AES-256-GCM under an Argon2id-derived key.
// Output layout: salt || nonce || ciphertext.
func seal(plaintext, passphrase []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	out := make([]byte, 0, saltLen+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

// open reverses seal.
func open(sealed, passphrase []byte) ([]byte, error) {
	if len(sealed) < saltLen {
		return nil, errors.New("sealed key too short")
	}
	salt := sealed[:saltLen]

	aead, err := newAEAD(passphrase, salt)
	if err != nil {
		return nil, err
	}

	rest := sealed[saltLen:]
	if len(rest) < aead.NonceSize() {
		return nil, errors.New("sealed key too short")
	}
	nonce := rest[:aead.NonceSize()]
	ciphertext := rest[aead.NonceSize():]

	return aead.Open(nil, nonce, ciphertext, nil)
}

func newAEAD(passphrase, salt []byte) (cipher.AEAD, error) {
	kek := argon2.IDKey(passphrase, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
