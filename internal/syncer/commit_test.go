// SPDX-License-Identifier: MPL-2.0

package syncer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestCommitter_Commit(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"a.py": "old a\n", "b.py": "same\n"})
	files := []FileResult{
		{Path: filepath.Join(dir, "a.py"), Original: "old a\n", Rendered: "new a\n"},
		{Path: filepath.Join(dir, "b.py"), Original: "same\n", Rendered: "same\n"},
	}
	backups, err := NewCommitter().Commit(context.Background(), files)
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if len(backups) != 1 || backups[0] != files[0].Path+BackupSuffix {
		t.Fatalf("backups = %v", backups)
	}
	if data, _ := os.ReadFile(files[0].Path); string(data) != "new a\n" {
		t.Errorf("a.py = %q", data)
	}
	if data, _ := os.ReadFile(backups[0]); string(data) != "old a\n" {
		t.Errorf("backup = %q", data)
	}
	if _, err := os.Stat(files[1].Path + BackupSuffix); !errors.Is(err, fs.ErrNotExist) {
		t.Error("unchanged files must not be backed up")
	}

	if err := RemoveBackups(backups); err != nil {
		t.Fatalf("RemoveBackups() error: %v", err)
	}
	if _, err := os.Stat(backups[0]); !errors.Is(err, fs.ErrNotExist) {
		t.Error("backup should be removed")
	}
}

func TestCommitter_RestoresOnWriteFailure(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"a.py": "old a\n", "b.py": "old b\n"})
	boom := errors.New("disk full")
	c := &Committer{writeFile: func(path string, data []byte, perm fs.FileMode) error {
		if filepath.Base(path) == "b.py" {
			return boom
		}
		return atomicWriteFile(path, data, perm)
	}}
	files := []FileResult{
		{Path: filepath.Join(dir, "a.py"), Original: "old a\n", Rendered: "new a\n"},
		{Path: filepath.Join(dir, "b.py"), Original: "old b\n", Rendered: "new b\n"},
	}
	backups, err := c.Commit(context.Background(), files)
	if !errors.Is(err, boom) {
		t.Fatalf("Commit() error = %v, want %v", err, boom)
	}
	// a.py was committed before the failure and stays committed.
	if data, _ := os.ReadFile(files[0].Path); string(data) != "new a\n" || len(backups) != 1 {
		t.Errorf("a.py = %q, backups = %v", data, backups)
	}
	if data, _ := os.ReadFile(files[1].Path); string(data) != "old b\n" {
		t.Errorf("b.py must be restored, got %q", data)
	}
	if _, err := os.Stat(files[1].Path + BackupSuffix); !errors.Is(err, fs.ErrNotExist) {
		t.Error("restored backup must not remain")
	}
}

func TestCommitter_Canceled(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"a.py": "old\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCommitter().Commit(ctx, []FileResult{{Path: filepath.Join(dir, "a.py"), Original: "old\n", Rendered: "new\n"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if data, _ := os.ReadFile(filepath.Join(dir, "a.py")); string(data) != "old\n" {
		t.Error("no file may be touched after cancellation")
	}
}

func TestAtomicWriteFile_KeepsMode(t *testing.T) {
	t.Parallel()

	dir := writeFiles(t, map[string]string{"run.sh": "old\n"})
	path := filepath.Join(dir, "run.sh")
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := NewCommitter().Commit(context.Background(), []FileResult{{Path: path, Original: "old\n", Rendered: "new\n"}}); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestCommitter_RefusesUnsafeBackups(t *testing.T) {
	t.Parallel()

	t.Run("existing backup", func(t *testing.T) {
		t.Parallel()

		dir := writeFiles(t, map[string]string{"a.py": "old a\n", "b.py": "old b\n", "b.py.orig": "older b\n"})
		files := []FileResult{
			{Path: filepath.Join(dir, "a.py"), Original: "old a\n", Rendered: "new a\n"},
			{Path: filepath.Join(dir, "b.py"), Original: "old b\n", Rendered: "new b\n"},
		}
		backups, err := NewCommitter().Commit(context.Background(), files)
		var exists *BackupExistsError
		if !errors.As(err, &exists) || exists.Backup != files[1].Path+BackupSuffix {
			t.Fatalf("expected *BackupExistsError for b.py, got %v", err)
		}
		if !errors.Is(err, ErrBackupExists) || len(backups) != 0 {
			t.Errorf("err = %v, backups = %v", err, backups)
		}
		for name, want := range map[string]string{"a.py": "old a\n", "b.py": "old b\n", "b.py.orig": "older b\n"} {
			if data, _ := os.ReadFile(filepath.Join(dir, name)); string(data) != want {
				t.Errorf("%s = %q, want %q", name, data, want)
			}
		}
	})

	t.Run("same file twice", func(t *testing.T) {
		t.Parallel()

		dir := writeFiles(t, map[string]string{"a.py": "old\n"})
		path := filepath.Join(dir, "a.py")
		files := []FileResult{
			{Path: path, Original: "old\n", Rendered: "first\n"},
			{Path: filepath.Join(dir, ".", "a.py"), Original: "old\n", Rendered: "second\n"},
		}
		if _, err := NewCommitter().Commit(context.Background(), files); !errors.Is(err, ErrSameFile) {
			t.Fatalf("expected ErrSameFile, got %v", err)
		}
		if data, _ := os.ReadFile(path); string(data) != "old\n" {
			t.Errorf("a.py = %q, must be untouched", data)
		}
	})
}
