package audit

import (
	"fmt"
	"sync"
)

var (
	// globalWriter is the default audit writer.
	globalWriter Writer = NopWriter{}
	globalMu     sync.RWMutex

	// enabled tracks whether audit logging is active.
	enabled bool
)

// Init initializes the global audit logger with the given writer.
// Must be called before any audit events are logged.
func Init(w Writer) error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if w == nil {
		globalWriter = NopWriter{}
		enabled = false
		return nil
	}

	globalWriter = w
	enabled = true
	return nil
}

// InitFile initializes the global audit logger with a file writer.
// This is a convenience function for the common case.
func InitFile(path string) error {
	if path == "" {
		return Init(nil)
	}

	w, err := NewFileWriter(path)
	if err != nil {
		return err
	}

	return Init(w)
}

// Close closes the global audit writer.
// Should be called when the application exits.
func Close() error {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalWriter != nil {
		err := globalWriter.Close()
		globalWriter = NopWriter{}
		enabled = false
		return err
	}
	return nil
}

// Enabled returns whether audit logging is active.
func Enabled() bool {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return enabled
}

// Log writes an audit event to the global writer.
func Log(event *Event) error {
	globalMu.RLock()
	w := globalWriter
	globalMu.RUnlock()

	return w.Write(event)
}

// MustLog writes an audit event and returns an error suitable for
// failing the parent operation if audit logging fails.
//
// Usage:
//
//	if err := audit.MustLog(event); err != nil {
//	    return nil, err // Operation fails if audit fails
//	}
func MustLog(event *Event) error {
	if err := Log(event); err != nil {
		return fmt.Errorf("audit log failed: %w", err)
	}
	return nil
}

func toResult(success bool) Result {
	if success {
		return ResultSuccess
	}
	return ResultFailure
}

// LogCertIssued logs a certificate issuance event.
func LogCertIssued(caName, serial, subject, algorithm string, success bool) error {
	event := NewEvent(EventCertIssued, toResult(success)).
		WithObject(Object{
			Type:    "certificate",
			Serial:  serial,
			Subject: subject,
		}).
		WithContext(Context{
			CA:        caName,
			Algorithm: algorithm,
		})

	return MustLog(event)
}

// LogCertRevoked logs a certificate revocation event.
// Duplicate revocations are logged with reason "already revoked".
func LogCertRevoked(caName, serial, reason string, success bool) error {
	event := NewEvent(EventCertRevoked, toResult(success)).
		WithObject(Object{
			Type:   "certificate",
			Serial: serial,
		}).
		WithContext(Context{
			CA:     caName,
			Reason: reason,
		})

	return MustLog(event)
}

// LogCRLGenerated logs a CRL generation event.
func LogCRLGenerated(caName, crlNumber string, revokedCount int, success bool) error {
	event := NewEvent(EventCRLGenerated, toResult(success)).
		WithObject(Object{
			Type: "crl",
		}).
		WithContext(Context{
			CA:        caName,
			CRLNumber: crlNumber,
			Reason:    fmt.Sprintf("%d certificates revoked", revokedCount),
		})

	return MustLog(event)
}

// LogCRLPublished logs a CRL publish attempt.
func LogCRLPublished(path string, success bool, reason string) error {
	event := NewEvent(EventCRLPublished, toResult(success)).
		WithObject(Object{
			Type: "crl",
			Path: path,
		}).
		WithContext(Context{
			Reason: reason,
		})

	return MustLog(event)
}

// LogKeyGenerated logs generation of the token signing key pair.
func LogKeyGenerated(path, algorithm string, success bool) error {
	event := NewEvent(EventKeyGenerated, toResult(success)).
		WithObject(Object{
			Type: "key",
			Path: path,
		}).
		WithContext(Context{
			Algorithm: algorithm,
		})

	return MustLog(event)
}

// LogKeyAccessed logs a signing key access event.
func LogKeyAccessed(path string, success bool, reason string) error {
	event := NewEvent(EventKeyAccessed, toResult(success)).
		WithObject(Object{
			Type: "key",
			Path: path,
		}).
		WithContext(Context{
			Reason: reason,
		})

	return MustLog(event)
}

// LogTokenIssued logs issuance of an access/refresh token pair.
func LogTokenIssued(userID, clientIP string, success bool) error {
	event := NewEvent(EventTokenIssued, toResult(success)).
		WithObject(Object{
			Type:    "token",
			Subject: userID,
		}).
		WithContext(Context{
			ClientIP: clientIP,
		})

	return MustLog(event)
}

// LogTokenRotated logs a refresh-token rotation.
func LogTokenRotated(userID, clientIP string, success bool) error {
	event := NewEvent(EventTokenRotated, toResult(success)).
		WithObject(Object{
			Type:    "token",
			Subject: userID,
		}).
		WithContext(Context{
			ClientIP: clientIP,
			Reason:   "refresh token rotated",
		})

	return MustLog(event)
}

// LogTokensRevoked logs bulk revocation of a user's refresh tokens.
func LogTokensRevoked(userID, reason string, count int) error {
	event := NewEvent(EventTokensRevoked, ResultSuccess).
		WithObject(Object{
			Type:    "token",
			Subject: userID,
		}).
		WithContext(Context{
			Reason: fmt.Sprintf("%s (%d tokens)", reason, count),
		})

	return MustLog(event)
}

// LogAuthFailed logs an authentication failure event.
func LogAuthFailed(subject, reason string) error {
	event := NewEvent(EventAuthFailed, ResultFailure).
		WithObject(Object{
			Type:    "token",
			Subject: subject,
		}).
		WithContext(Context{
			Reason: reason,
		})

	return MustLog(event)
}
