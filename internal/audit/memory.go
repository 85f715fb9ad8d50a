package audit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryTrail keeps the trail in process memory. It backs tests and
// one-shot CLI runs that have no use for a database file.
type MemoryTrail struct {
	mu      sync.RWMutex
	records []Record
	byKey   map[string]struct{} // plan_id + "/" + kind

	wmu      sync.Mutex
	watchers map[int]chan Record
	nextID   int
}

// NewMemoryTrail creates an empty in-memory trail.
func NewMemoryTrail() *MemoryTrail {
	return &MemoryTrail{
		byKey:    make(map[string]struct{}),
		watchers: make(map[int]chan Record),
	}
}

func key(planID string, kind RecordKind) string {
	return planID + "/" + string(kind)
}

// Append writes one record.
func (t *MemoryTrail) Append(_ context.Context, rec Record) error {
	if rec.ID == "" || rec.PlanID == "" || rec.Kind == "" {
		return fmt.Errorf("audit record incomplete: id=%q plan_id=%q kind=%q", rec.ID, rec.PlanID, rec.Kind)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	t.mu.Lock()
	k := key(rec.PlanID, rec.Kind)
	if _, dup := t.byKey[k]; dup {
		t.mu.Unlock()
		return fmt.Errorf("%w: plan %s kind %s", ErrDuplicate, rec.PlanID, rec.Kind)
	}
	t.byKey[k] = struct{}{}
	t.records = append(t.records, rec)
	t.mu.Unlock()

	t.notify(rec)
	return nil
}

// Query returns matching records in append order.
func (t *MemoryTrail) Query(_ context.Context, f Filter) ([]Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []Record
	for _, rec := range t.records {
		if f.PlanID != "" && rec.PlanID != f.PlanID {
			continue
		}
		if f.Kind != "" && rec.Kind != f.Kind {
			continue
		}
		if !f.Since.IsZero() && rec.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

// HasResult reports whether planID already has an execution result.
func (t *MemoryTrail) HasResult(_ context.Context, planID string) (bool, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.byKey[key(planID, KindResult)]
	return ok, nil
}

// Watch subscribes to new records.
func (t *MemoryTrail) Watch() (<-chan Record, func()) {
	t.wmu.Lock()
	defer t.wmu.Unlock()

	id := t.nextID
	t.nextID++
	ch := make(chan Record, 64)
	t.watchers[id] = ch

	stop := func() {
		t.wmu.Lock()
		defer t.wmu.Unlock()
		if c, ok := t.watchers[id]; ok {
			delete(t.watchers, id)
			close(c)
		}
	}
	return ch, stop
}

func (t *MemoryTrail) notify(rec Record) {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	for _, ch := range t.watchers {
		select {
		case ch <- rec:
		default:
		}
	}
}

// Close releases all watch subscriptions.
func (t *MemoryTrail) Close() error {
	t.wmu.Lock()
	defer t.wmu.Unlock()
	for id, ch := range t.watchers {
		delete(t.watchers, id)
		close(ch)
	}
	return nil
}

var _ Trail = (*MemoryTrail)(nil)
