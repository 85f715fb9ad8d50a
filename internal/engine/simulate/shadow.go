package simulate

import (
	"context"
	"time"

	"github.com/airlock-sh/airlock/internal/engine/target"
)

// entry is the predicted state of one path after earlier steps of the
// same plan have notionally run.
type entry struct {
	exists     bool
	isDir      bool
	size       int64
	sha256     string
	restorable bool
}

// shadow layers predicted effects over the real system. It satisfies
// target.Inspector so condition checks can be reused unchanged; paths
// untouched by the plan fall through to the real inspector.
type shadow struct {
	insp    target.Inspector
	overlay map[string]entry
}

func newShadow(insp target.Inspector) *shadow {
	return &shadow{insp: insp, overlay: make(map[string]entry)}
}

func (s *shadow) Snapshot(ctx context.Context, path string) (target.Snapshot, error) {
	if e, ok := s.overlay[path]; ok {
		snap := target.Snapshot{
			Path:    path,
			Exists:  e.exists,
			IsDir:   e.isDir,
			Size:    e.size,
			SHA256:  e.sha256,
			TakenAt: time.Now(),
		}
		if e.exists && e.restorable {
			// Restorable() needs non-nil content; the bytes themselves
			// are never read during simulation.
			snap.Content = []byte{}
		}
		return snap, nil
	}
	return s.insp.Snapshot(ctx, path)
}

// current returns the effective state of path: the overlay entry when
// one exists, a fresh real snapshot otherwise.
func (s *shadow) current(ctx context.Context, path string) (entry, error) {
	if e, ok := s.overlay[path]; ok {
		return e, nil
	}
	snap, err := s.insp.Snapshot(ctx, path)
	if err != nil {
		return entry{}, err
	}
	e := entry{
		exists:     snap.Exists,
		isDir:      snap.IsDir,
		size:       snap.Size,
		sha256:     snap.SHA256,
		restorable: snap.Restorable(),
	}
	return e, nil
}

func (s *shadow) record(path string, e entry) {
	s.overlay[path] = e
}
