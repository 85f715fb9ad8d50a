package target

import (
	"context"
	"fmt"
	"path/filepath"
)

// CheckResult is the outcome of evaluating one condition.
type CheckResult struct {
	Condition Condition `json:"condition"`
	Holds     bool      `json:"holds"`
	Detail    string    `json:"detail,omitempty"`
}

// Check evaluates a condition against the real system through a read-only
// inspector. It never mutates anything.
func Check(ctx context.Context, insp Inspector, c Condition) (CheckResult, error) {
	result := CheckResult{Condition: c}

	path := c.Path
	if c.Kind == CondParentExists {
		path = filepath.Dir(c.Path)
	}

	snap, err := insp.Snapshot(ctx, path)
	if err != nil {
		return result, fmt.Errorf("inspect %s: %w", path, err)
	}

	switch c.Kind {
	case CondExists:
		result.Holds = snap.Exists
		if !snap.Exists {
			result.Detail = "path does not exist"
		}
	case CondNotExists:
		result.Holds = !snap.Exists
		if snap.Exists {
			result.Detail = "path already exists"
		}
	case CondIsFile:
		result.Holds = snap.Exists && !snap.IsDir
		if !result.Holds {
			result.Detail = "path is missing or not a regular file"
		}
	case CondIsDir:
		result.Holds = snap.Exists && snap.IsDir
		if !result.Holds {
			result.Detail = "path is missing or not a directory"
		}
	case CondParentExists:
		result.Holds = snap.Exists && snap.IsDir
		if !result.Holds {
			result.Detail = fmt.Sprintf("parent directory %s is missing", path)
		}
	case CondContentSHA:
		result.Holds = snap.Exists && snap.SHA256 == c.Value
		if !result.Holds {
			result.Detail = fmt.Sprintf("content digest is %.12s, expected %.12s", snap.SHA256, c.Value)
		}
	default:
		return result, fmt.Errorf("unknown condition kind %q", c.Kind)
	}

	return result, nil
}

// CheckAll evaluates conditions in order and returns the first one that
// does not hold, or nil when all hold.
func CheckAll(ctx context.Context, insp Inspector, conds []Condition) (*CheckResult, error) {
	for _, c := range conds {
		res, err := Check(ctx, insp, c)
		if err != nil {
			return nil, err
		}
		if !res.Holds {
			failed := res
			return &failed, nil
		}
	}
	return nil, nil
}
