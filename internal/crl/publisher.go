package crl

import (
	"path"

	"github.com/remotemaster/trustengine/internal/audit"
	"github.com/remotemaster/trustengine/internal/storage"
)

// PublishDir and PublishFile form the well-known location consumers
// fetch the CRL from, relative to the configured base path.
const (
	PublishDir  = "RemoteMaster"
	PublishFile = "list.crl"
)

// Publisher writes generated CRLs to their well-known location.
type Publisher struct {
	fs storage.FileSystem
}

// NewPublisher creates a Publisher over the given file system.
func NewPublisher(fs storage.FileSystem) *Publisher {
	return &Publisher{fs: fs}
}

// PublishPath returns the target file path under basePath.
func PublishPath(basePath string) string {
	return path.Join(basePath, PublishDir, PublishFile)
}

// Publish writes der to <basePath>/RemoteMaster/list.crl, creating the
// parent directory. Failures are logged and reported as false; a failed
// publish is recoverable by regenerating and retrying, so it never
// aborts the caller.
func (p *Publisher) Publish(der []byte, basePath string) bool {
	target := PublishPath(basePath)

	if err := p.fs.MkdirAll(path.Join(basePath, PublishDir), 0o755); err != nil {
		_ = audit.LogCRLPublished(target, false, err.Error())
		return false
	}
	if err := p.fs.WriteFile(target, der, 0o644); err != nil {
		_ = audit.LogCRLPublished(target, false, err.Error())
		return false
	}

	_ = audit.LogCRLPublished(target, true, "")
	return true
}
