// SPDX-License-Identifier: MPL-2.0

package syncer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to a file's path while it is being replaced.
const BackupSuffix = ".orig"

type (
	// Committer writes rendered documents back to disk.
	Committer struct {
		writeFile func(path string, data []byte, perm fs.FileMode) error
	}
)

// NewCommitter returns a Committer that replaces files atomically.
func NewCommitter() *Committer {
	return &Committer{writeFile: atomicWriteFile}
}

// Commit replaces every changed file in order. Each original is first moved
// to path+BackupSuffix; if writing the new content fails the backup is moved
// back and the error is returned. Files committed before the failure stay
// committed. The backup paths of committed files are returned.
//
// Nothing is written when a changed file appears twice or its backup path
// already exists.
func (c *Committer) Commit(ctx context.Context, files []FileResult) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkBackups(files); err != nil {
		return nil, err
	}
	var backups []string
	for _, f := range files {
		if !f.Changed() {
			continue
		}
		backup, err := c.commitOne(f)
		if err != nil {
			return backups, err
		}
		backups = append(backups, backup)
	}
	return backups, nil
}

func (c *Committer) commitOne(f FileResult) (string, error) {
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(f.Path); err == nil {
		perm = info.Mode().Perm()
	}
	backup := f.Path + BackupSuffix
	if err := os.Rename(f.Path, backup); err != nil {
		return "", fmt.Errorf("back up %s: %w", f.Path, err)
	}
	if err := c.writeFile(f.Path, []byte(f.Rendered), perm); err != nil {
		if rerr := os.Rename(backup, f.Path); rerr != nil {
			return "", errors.Join(fmt.Errorf("write %s: %w", f.Path, err),
				fmt.Errorf("restore %s from %s: %w", f.Path, backup, rerr))
		}
		return "", fmt.Errorf("write %s: %w", f.Path, err)
	}
	return backup, nil
}

func checkBackups(files []FileResult) error {
	seen := make(map[string]bool)
	for _, f := range files {
		if !f.Changed() {
			continue
		}
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", f.Path, err)
		}
		if seen[abs] {
			return fmt.Errorf("%s: %w", f.Path, ErrSameFile)
		}
		seen[abs] = true

		backup := f.Path + BackupSuffix
		if _, err := os.Lstat(backup); err == nil {
			return &BackupExistsError{Path: f.Path, Backup: backup}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("check backup of %s: %w", f.Path, err)
		}
	}
	return nil
}

// RemoveBackups deletes backups left by Commit.
func RemoveBackups(backups []string) error {
	var errs []error
	for _, b := range backups {
		if err := os.Remove(b); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// atomicWriteFile writes data to a file atomically using temp file + rename.
func atomicWriteFile(path string, data []byte, perm fs.FileMode) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, perm); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Best-effort cleanup
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
