package target

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultMaxRestoreBytes caps how much file content a snapshot retains for
// rollback. Files above the cap still get a digest but cannot be restored;
// the simulator surfaces mutating steps on such files as unsafe.
const DefaultMaxRestoreBytes = 4 << 20

// FS is the filesystem implementation of the frozen System boundary.
type FS struct {
	// MaxRestoreBytes overrides DefaultMaxRestoreBytes when > 0.
	MaxRestoreBytes int64
}

var _ System = (*FS)(nil)

// NewFS creates the real filesystem boundary
func NewFS() *FS {
	return &FS{MaxRestoreBytes: DefaultMaxRestoreBytes}
}

func (f *FS) restoreLimit() int64 {
	if f.MaxRestoreBytes > 0 {
		return f.MaxRestoreBytes
	}
	return DefaultMaxRestoreBytes
}

// Snapshot captures the current state of path without mutating anything.
func (f *FS) Snapshot(ctx context.Context, path string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Path: path, TakenAt: time.Now().UTC()}

	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("stat %s: %w", path, err)
	}

	snap.Exists = true
	snap.IsDir = info.IsDir()
	snap.Size = info.Size()
	snap.Mode = info.Mode().String()
	snap.Perm = uint32(info.Mode().Perm())

	if !info.IsDir() && info.Mode().IsRegular() {
		content, err := os.ReadFile(path)
		if err != nil {
			return snap, fmt.Errorf("read %s: %w", path, err)
		}
		snap.SHA256 = HashContent(content)
		if info.Size() <= f.restoreLimit() {
			snap.Content = content
		}
	}

	return snap, nil
}

// applyFunc is the handler signature for a single operation variant.
type applyFunc func(f *FS, path string, params map[string]string) (string, error)

// appliers is the complete dispatch table. A test asserts it covers every
// op in the closed set, so forgetting a handler fails the build's tests
// rather than surfacing at runtime.
var appliers = map[Op]applyFunc{
	OpRead:   (*FS).applyRead,
	OpList:   (*FS).applyList,
	OpCreate: (*FS).applyCreate,
	OpWrite:  (*FS).applyWrite,
	OpDelete: (*FS).applyDelete,
}

// Apply performs op against path and returns its textual output.
func (f *FS) Apply(ctx context.Context, op Op, path string, params map[string]string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fn, ok := appliers[op]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownOp, op)
	}
	return fn(f, path, params)
}

func (f *FS) applyRead(path string, _ map[string]string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(content), nil
}

func (f *FS) applyList(path string, _ map[string]string) (string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return "", fmt.Errorf("list %s: %w", path, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, "\n"), nil
}

func (f *FS) applyCreate(path string, params map[string]string) (string, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if content := params["content"]; content != "" {
		if _, err := file.WriteString(content); err != nil {
			return "", fmt.Errorf("write %s: %w", path, err)
		}
	}
	return "", nil
}

func (f *FS) applyWrite(path string, params map[string]string) (string, error) {
	if err := os.WriteFile(path, []byte(params["content"]), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return "", nil
}

func (f *FS) applyDelete(path string, _ map[string]string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", fmt.Errorf("delete %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("delete %s: refusing to delete a directory", path)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("delete %s: %w", path, err)
	}
	return "", nil
}

// ErrNotRestorable is returned when a restore revert lacks the content
// needed to recreate the path.
var ErrNotRestorable = errors.New("before-snapshot does not carry restorable content")

// Revert executes one compensating action using the step's before-snapshot.
func (f *FS) Revert(ctx context.Context, rev Revert, before Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch rev.Kind {
	case RevertNone:
		return nil

	case RevertRemove:
		err := os.Remove(rev.Path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("revert remove %s: %w", rev.Path, err)
		}
		return nil

	case RevertRestore:
		if !before.Exists {
			// Path was absent before the step; removing it is the restore.
			err := os.Remove(rev.Path)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("revert restore %s: %w", rev.Path, err)
			}
			return nil
		}
		if !before.Restorable() {
			return fmt.Errorf("revert restore %s: %w", rev.Path, ErrNotRestorable)
		}
		perm := fs.FileMode(before.Perm)
		if perm == 0 {
			perm = 0o644
		}
		if err := os.MkdirAll(filepath.Dir(rev.Path), 0o755); err != nil {
			return fmt.Errorf("revert restore %s: %w", rev.Path, err)
		}
		if err := os.WriteFile(rev.Path, before.Content, perm); err != nil {
			return fmt.Errorf("revert restore %s: %w", rev.Path, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownRevert, rev.Kind)
	}
}
