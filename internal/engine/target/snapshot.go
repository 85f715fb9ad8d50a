package target

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Snapshot captures the observable state of one path at a point in time.
// For regular files below the restore limit the raw content is retained so
// overwrite and delete operations stay reversible.
type Snapshot struct {
	Path     string    `json:"path"`
	Exists   bool      `json:"exists"`
	IsDir    bool      `json:"is_dir,omitempty"`
	Size     int64     `json:"size,omitempty"`
	Mode     string    `json:"mode,omitempty"`
	Perm     uint32    `json:"perm,omitempty"`
	SHA256   string    `json:"sha256,omitempty"`
	Content  []byte    `json:"-"`
	TakenAt  time.Time `json:"taken_at"`
}

// Restorable reports whether the snapshot carries enough information to
// recreate the path after an overwrite or delete.
func (s Snapshot) Restorable() bool {
	if !s.Exists {
		// A missing path is trivially restorable: remove whatever was put there.
		return true
	}
	return !s.IsDir && s.Content != nil
}

// HashContent returns the hex SHA-256 of b, the digest form used in
// snapshots and postconditions.
func HashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ConditionKind is one of the closed set of declarative checks a step can
// require before or after it runs.
type ConditionKind string

const (
	CondExists       ConditionKind = "exists"
	CondNotExists    ConditionKind = "not_exists"
	CondIsFile       ConditionKind = "is_file"
	CondIsDir        ConditionKind = "is_dir"
	CondParentExists ConditionKind = "parent_exists"
	CondContentSHA   ConditionKind = "content_sha256"
)

// Condition is a declarative check evaluated against the real system.
// Conditions never mutate: evaluation goes through an Inspector only.
type Condition struct {
	Kind  ConditionKind `json:"kind"`
	Path  string        `json:"path"`
	Value string        `json:"value,omitempty"`
}

// Describe returns a human-readable form for reports and audit records
func (c Condition) Describe() string {
	switch c.Kind {
	case CondExists:
		return fmt.Sprintf("%s exists", c.Path)
	case CondNotExists:
		return fmt.Sprintf("%s does not exist", c.Path)
	case CondIsFile:
		return fmt.Sprintf("%s is a regular file", c.Path)
	case CondIsDir:
		return fmt.Sprintf("%s is a directory", c.Path)
	case CondParentExists:
		return fmt.Sprintf("parent directory of %s exists", c.Path)
	case CondContentSHA:
		return fmt.Sprintf("%s has content digest %.12s…", c.Path, c.Value)
	default:
		return fmt.Sprintf("unknown condition %q on %s", c.Kind, c.Path)
	}
}
