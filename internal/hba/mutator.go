// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package hba

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("pgreset.hba")

// ErrNoBackup is returned by Restore when no readable backup exists,
// which means a rollback is impossible.
const ErrNoBackup = errors.ConstError("no backup to restore")

// File is the on-disk authentication policy file being mutated.
type File struct {
	// Path is the location of pg_hba.conf inside the data directory.
	Path string
}

// ForDataDir returns the File for a cluster data directory.
func ForDataDir(dataDir string) File {
	return File{Path: filepath.Join(dataDir, "pg_hba.conf")}
}

// BackupPath is where Backup writes the verbatim pre-mutation copy.
// Presence of this file is the sole durable indicator that a rollback
// is possible.
func (f File) BackupPath() string {
	return f.Path + ".backup"
}

// FileSystemOps is the filesystem seam used by the Mutator, injectable
// so failure modes can be simulated in tests.
type FileSystemOps interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Exists(path string) bool
}

type fileSystemOps struct{}

func (fileSystemOps) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (fileSystemOps) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (fileSystemOps) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Mutator backs up, overwrites and restores the authentication policy
// file. A backup must exist, and must have been verified readable,
// before the file content is ever overwritten; that ordering is the
// single most important invariant in the system and is enforced by the
// workflow calling Backup before any Apply.
type Mutator struct {
	fs FileSystemOps
}

// NewMutator returns a Mutator operating on the local filesystem.
func NewMutator() *Mutator {
	return &Mutator{fs: fileSystemOps{}}
}

// Backup copies the file's current content to its backup path and
// verifies the copy is readable and identical before returning.
func (m *Mutator) Backup(f File) error {
	content, err := m.fs.ReadFile(f.Path)
	if err != nil {
		return errors.Annotatef(err, "backing up %q", f.Path)
	}
	if err := m.fs.WriteFile(f.BackupPath(), content, 0600); err != nil {
		return errors.Annotatef(err, "writing backup %q", f.BackupPath())
	}
	// Re-read the backup: an unreadable or truncated backup discovered
	// now is an error; discovered at restore time it is a disaster.
	written, err := m.fs.ReadFile(f.BackupPath())
	if err != nil {
		return errors.Annotatef(err, "verifying backup %q", f.BackupPath())
	}
	if !bytes.Equal(written, content) {
		return errors.Errorf("backup %q does not match %q", f.BackupPath(), f.Path)
	}
	logger.Infof("backed up %q to %q", f.Path, f.BackupPath())
	return nil
}

// Apply overwrites the file with the policy's rendered content in a
// single write. On error the previous on-disk content is untouched;
// an OS-level write interrupted mid-flush can still truncate the file,
// which is an accepted limitation covered by the backup.
func (m *Mutator) Apply(f File, policy Policy) error {
	if err := m.fs.WriteFile(f.Path, policy.Render(), 0600); err != nil {
		return errors.Annotatef(err, "applying %s policy to %q", policy.Name(), f.Path)
	}
	logger.Infof("applied %s policy to %q", policy.Name(), f.Path)
	return nil
}

// Restore copies the backup back over the file. It is the sole
// compensating action for a failed reset.
func (m *Mutator) Restore(f File) error {
	content, err := m.fs.ReadFile(f.BackupPath())
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			return errors.Annotatef(ErrNoBackup, "restoring %q", f.Path)
		}
		return errors.Annotatef(err, "reading backup %q", f.BackupPath())
	}
	if err := m.fs.WriteFile(f.Path, content, 0600); err != nil {
		return errors.Annotatef(err, "restoring %q", f.Path)
	}
	logger.Infof("restored %q from %q", f.Path, f.BackupPath())
	return nil
}

// HasBackup reports whether a backup artifact exists for the file.
func (m *Mutator) HasBackup(f File) bool {
	return m.fs.Exists(f.BackupPath())
}
