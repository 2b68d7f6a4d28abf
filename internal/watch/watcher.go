// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a callback when snippet files change.
//
// A Watcher tracks the files selected by doublestar glob patterns plus a set
// of individual files (typically the search path). Events within the debounce
// window are coalesced so the callback fires once with every changed path.
// The callback runs on the event loop, so runs never overlap; events raised
// while it runs start the next debounce window.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period used when Config.Debounce is not set.
const DefaultDebounce = 300 * time.Millisecond

var (
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("watcher already running")

	// ErrInvalidPattern is the sentinel wrapped by PatternError.
	ErrInvalidPattern = errors.New("invalid watch pattern")

	// defaultIgnores never trigger a run: VCS metadata, the backup and
	// temporary files written while committing, and editor droppings.
	defaultIgnores = []string{
		"**/.git/**",
		"**/*.orig",
		"**/*.tmp",
		"**/*.swp",
		"**/*.swo",
		"**/*~",
		"**/.DS_Store",
	}
)

type (
	// Config holds the parameters for a Watcher.
	Config struct {
		// Patterns select the snippet files to track. Relative patterns are
		// resolved against BaseDir.
		Patterns []string

		// Files are tracked individually, wherever they live.
		Files []string

		// Ignore adds patterns to the default ignores. They are matched
		// against paths relative to BaseDir.
		Ignore []string

		// Debounce defaults to DefaultDebounce.
		Debounce time.Duration

		// BaseDir defaults to the working directory.
		BaseDir string

		// OnChange receives the sorted changed paths, relative to BaseDir
		// where possible. A nil callback is a no-op.
		OnChange func(ctx context.Context, changed []string) error

		// Stderr receives non-fatal watcher errors. nil means os.Stderr.
		Stderr io.Writer
	}

	// PatternError reports a malformed glob.
	PatternError struct {
		Pattern string
	}

	// Watcher monitors the tracked files. Run must be called exactly once.
	Watcher struct {
		cfg      Config
		fsw      *fsnotify.Watcher
		baseDir  string
		debounce time.Duration
		ignores  []string
		files    map[string]bool
		// recursive are the roots whose new subdirectories are watched too.
		recursive []string
		stderr    io.Writer
		started   atomic.Bool
	}
)

func (e *PatternError) Error() string {
	return fmt.Sprintf("invalid watch pattern %q", e.Pattern)
}

// Unwrap returns ErrInvalidPattern for errors.Is() compatibility.
func (e *PatternError) Unwrap() error { return ErrInvalidPattern }

// New validates cfg and registers the directories holding the tracked files.
func New(cfg Config) (*Watcher, error) {
	baseDir, err := absBaseDir(cfg.BaseDir)
	if err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Patterns); err != nil {
		return nil, err
	}
	if err := validatePatterns(cfg.Ignore); err != nil {
		return nil, err
	}

	w := &Watcher{
		cfg:      cfg,
		baseDir:  baseDir,
		debounce: cfg.Debounce,
		ignores:  append(slices.Clone(defaultIgnores), cfg.Ignore...),
		files:    make(map[string]bool, len(cfg.Files)),
		stderr:   cfg.Stderr,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.stderr == nil {
		w.stderr = os.Stderr
	}
	for _, f := range cfg.Files {
		w.files[w.abs(f)] = true
	}

	if w.fsw, err = fsnotify.NewWatcher(); err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}
	if err := w.addDirectories(); err != nil {
		_ = w.fsw.Close() // Best-effort cleanup
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is canceled, dispatching debounced callbacks. It
// returns nil on cancellation and an error when the watcher breaks. A
// callback error is reported to Stderr and does not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := w.fsw.Close(); err != nil {
			fmt.Fprintf(w.stderr, "watch: close fsnotify: %v\n", err)
		}
	}()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: fsnotify event channel closed unexpectedly")
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}
			name, relevant := w.classify(evt)
			if !relevant {
				continue
			}
			pending[name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: fsnotify error channel closed unexpectedly")
			}
			if isFatalFsnotifyError(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			fmt.Fprintf(w.stderr, "watch: fsnotify error: %v\n", err)

		case <-timer.C:
			if len(pending) == 0 || w.cfg.OnChange == nil {
				clear(pending)
				continue
			}
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			if err := w.cfg.OnChange(ctx, changed); err != nil && ctx.Err() == nil {
				fmt.Fprintf(w.stderr, "watch: %v\n", err)
			}
		}
	}
}

// Expand returns the sorted absolute paths of the regular files matched by
// the patterns, skipping ignored paths.
func (w *Watcher) Expand() ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range w.cfg.Patterns {
		base, pattern := w.split(p)
		matches, err := doublestar.Glob(os.DirFS(base), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("watch: expand %q: %w", p, err)
		}
		for _, m := range matches {
			path := filepath.Join(base, filepath.FromSlash(m))
			if seen[path] || w.isIgnored(path) {
				continue
			}
			seen[path] = true
			out = append(out, path)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Display returns path relative to the base directory when it lies inside it.
func (w *Watcher) Display(path string) string {
	if rel, ok := within(w.baseDir, path); ok {
		return rel
	}
	return path
}

// classify reports whether evt concerns a tracked file and returns its
// display name.
func (w *Watcher) classify(evt fsnotify.Event) (string, bool) {
	if evt.Op == fsnotify.Chmod {
		return "", false
	}
	path := w.abs(evt.Name)
	if w.files[path] {
		return w.Display(path), true
	}
	if w.isIgnored(path) || !w.matches(path) {
		return "", false
	}
	return w.Display(path), true
}

func (w *Watcher) matches(path string) bool {
	for _, p := range w.cfg.Patterns {
		base, pattern := w.split(p)
		rel, ok := within(base, path)
		if !ok {
			continue
		}
		if ok, _ := doublestar.Match(pattern, filepath.ToSlash(rel)); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) isIgnored(path string) bool {
	rel, err := filepath.Rel(w.baseDir, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pat := range w.ignores {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) isIgnoredDir(path string) bool {
	return w.isIgnored(path) || w.isIgnored(path+string(filepath.Separator))
}

// split resolves a pattern to an absolute base directory and the glob
// below it.
func (w *Watcher) split(p string) (string, string) {
	base, pattern := doublestar.SplitPattern(filepath.ToSlash(p))
	return w.abs(filepath.FromSlash(base)), pattern
}

func (w *Watcher) abs(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(w.baseDir, path)
}

// addDirectories watches the parent of every tracked file and the base of
// every pattern, walking the base when the pattern can match below it.
func (w *Watcher) addDirectories() error {
	dirs := make(map[string]bool)
	for path := range w.files {
		dirs[filepath.Dir(path)] = true
	}
	for _, p := range w.cfg.Patterns {
		base, pattern := w.split(p)
		if !strings.Contains(pattern, "/") && !strings.Contains(pattern, "**") {
			dirs[base] = true
			continue
		}
		w.recursive = append(w.recursive, base)
		err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				fmt.Fprintf(w.stderr, "watch: skipping inaccessible path %q: %v\n", path, err)
				return nil
			}
			if !d.IsDir() {
				return nil
			}
			if path != base && w.isIgnoredDir(path) {
				return filepath.SkipDir
			}
			dirs[path] = true
			return nil
		})
		if err != nil {
			return fmt.Errorf("watch: walk %q: %w", base, err)
		}
	}

	for _, dir := range slices.Sorted(maps.Keys(dirs)) {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(w.stderr, "watch: skipping missing directory %q\n", dir)
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watch: add directory %q: %w", dir, err)
		}
	}
	return nil
}

// maybeAddDir starts watching a directory created below a recursive root.
func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	path = w.abs(path)
	if w.isIgnoredDir(path) {
		return
	}
	for _, root := range w.recursive {
		if _, ok := within(root, path); ok {
			if err := w.fsw.Add(path); err != nil {
				fmt.Fprintf(w.stderr, "watch: add new directory %q: %v\n", path, err)
			}
			return
		}
	}
}

// within returns path relative to root when path lies inside root.
func within(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

func absBaseDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("watch: determine working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("watch: resolve base directory: %w", err)
	}
	return abs, nil
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if strings.TrimSpace(p) == "" || !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return &PatternError{Pattern: p}
		}
	}
	return nil
}
