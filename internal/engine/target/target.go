// Package target is the engine's only boundary to the real system. The
// Inspector side is strictly read-only and serves simulation; the Applier
// side performs and reverts operations and serves execution. Nothing
// outside this package touches the filesystem.
package target

import (
	"context"
	"errors"
	"fmt"
)

// ContractVersion identifies the frozen boundary contract. Implementations
// assert compatibility at compile time via the System interface; changing
// the interface requires bumping this constant.
const ContractVersion = 1

// Op is one of the closed set of applicable operations. Each op has
// exactly one handler registered in the dispatch table; Apply fails on
// anything outside the set.
type Op string

const (
	OpRead   Op = "read"
	OpList   Op = "list"
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpDelete Op = "delete"
)

func (o Op) String() string { return string(o) }

// Valid reports whether the op belongs to the closed set
func (o Op) Valid() bool {
	switch o {
	case OpRead, OpList, OpCreate, OpWrite, OpDelete:
		return true
	default:
		return false
	}
}

// Mutating reports whether the op changes real system state
func (o Op) Mutating() bool {
	switch o {
	case OpCreate, OpWrite, OpDelete:
		return true
	default:
		return false
	}
}

// RevertKind is one of the closed set of compensating actions.
type RevertKind string

const (
	// RevertNone marks a read-only op; nothing to compensate.
	RevertNone RevertKind = "none"

	// RevertRemove removes a path the step created.
	RevertRemove RevertKind = "remove"

	// RevertRestore restores a path to its before-snapshot, recreating
	// content the step overwrote or deleted.
	RevertRestore RevertKind = "restore"
)

// Valid reports whether the revert kind is recognized
func (k RevertKind) Valid() bool {
	switch k {
	case RevertNone, RevertRemove, RevertRestore:
		return true
	default:
		return false
	}
}

// Revert describes one compensating action bound to a path.
type Revert struct {
	Kind        RevertKind `json:"kind"`
	Path        string     `json:"path"`
	Description string     `json:"description"`
}

// ErrUnknownOp is returned when an op outside the closed set reaches the
// dispatch table.
var ErrUnknownOp = errors.New("unknown operation")

// ErrUnknownRevert is returned for a revert kind outside the closed set.
var ErrUnknownRevert = errors.New("unknown revert kind")

// Inspector provides read-only access to the real system. Implementations
// must not mutate any state; simulation depends on that.
type Inspector interface {
	Snapshot(ctx context.Context, path string) (Snapshot, error)
}

// Applier performs operations against the real system and reverts them.
type Applier interface {
	Apply(ctx context.Context, op Op, path string, params map[string]string) (string, error)
	Revert(ctx context.Context, rev Revert, before Snapshot) error
}

// System is the frozen boundary contract: the complete surface the engine
// is allowed to use against the real system.
type System interface {
	Inspector
	Applier
}

// RevertFor returns the compensating action for an op applied to path.
// Read-only ops get RevertNone. RevertRestore covers both the overwrite
// and the created-from-nothing case: restoring to an absent before-state
// removes the path.
func RevertFor(op Op, path string) (Revert, error) {
	switch op {
	case OpRead, OpList:
		return Revert{Kind: RevertNone, Path: path, Description: "read-only, no compensation"}, nil
	case OpCreate:
		return Revert{Kind: RevertRemove, Path: path, Description: "remove created file"}, nil
	case OpWrite:
		return Revert{Kind: RevertRestore, Path: path, Description: "restore previous content"}, nil
	case OpDelete:
		return Revert{Kind: RevertRestore, Path: path, Description: "restore deleted file"}, nil
	default:
		return Revert{}, fmt.Errorf("%w: %q", ErrUnknownOp, op)
	}
}
