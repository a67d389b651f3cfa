// internal/browser/indicator_test.go
package browser

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeScheduler is a manually advanced clock plus timer queue, so indicator
// choreography can be tested deterministically.
type fakeScheduler struct {
	mu      sync.Mutex
	now     time.Time
	entries []*fakeEntry
}

type fakeEntry struct {
	sched   *fakeScheduler
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)}
}

func (s *fakeScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := &fakeEntry{sched: s, at: s.now.Add(d), fn: fn}
	s.entries = append(s.entries, entry)
	return entry
}

func (e *fakeEntry) Stop() bool {
	e.sched.mu.Lock()
	defer e.sched.mu.Unlock()
	if e.fired || e.stopped {
		return false
	}
	e.stopped = true
	return true
}

func (s *fakeScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Advance moves the clock forward, firing due timers in order. Callbacks run
// without the scheduler lock held so they may schedule new timers.
func (s *fakeScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		var next *fakeEntry
		for _, e := range s.entries {
			if e.stopped || e.fired || e.at.After(target) {
				continue
			}
			if next == nil || e.at.Before(next.at) {
				next = e
			}
		}
		if next == nil {
			s.now = target
			s.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(s.now) {
			s.now = next.at
		}
		fn := next.fn
		s.mu.Unlock()
		fn()
	}
}

func testIndicators(t *testing.T) (*IndicatorSet, *fakeScheduler, IndicatorConfig) {
	t.Helper()
	sched := newFakeScheduler()
	cfg := DefaultIndicatorConfig()
	set := NewIndicatorSet(cfg, sched)
	set.SetClock(sched.Now)
	return set, sched, cfg
}

func TestIndicatorFastSaveSkipsSaving(t *testing.T) {
	set, sched, cfg := testIndicators(t)
	key := CellKey(1, FieldComment)

	set.BeginSave(key)
	if got := set.Status(key); got != IndicatorNone {
		t.Fatalf("status right after BeginSave = %v; want None", got)
	}

	// Completion before SavingDelay: saving never appears, saved shows at once.
	sched.Advance(cfg.SavingDelay / 2)
	set.FinishSave(key, nil)
	if got := set.Status(key); got != IndicatorSaved {
		t.Fatalf("status after fast save = %v; want Saved", got)
	}

	// The cancelled saving timer must not fire later.
	sched.Advance(cfg.SavingDelay)
	if got := set.Status(key); got != IndicatorSaved {
		t.Errorf("stale saving timer surfaced: status = %v", got)
	}

	sched.Advance(cfg.SavedVisible)
	if got := set.Status(key); got != IndicatorNone {
		t.Errorf("saved indicator did not auto-dismiss: status = %v", got)
	}
}

func TestIndicatorFastSaveError(t *testing.T) {
	set, sched, cfg := testIndicators(t)
	key := CellKey(1, FieldComment)

	set.BeginSave(key)
	set.FinishSave(key, errors.New("write failed"))
	if got := set.Status(key); got != IndicatorNone {
		t.Fatalf("status after failed fast save = %v; want None", got)
	}
	sched.Advance(2 * cfg.SavingDelay)
	if got := set.Status(key); got != IndicatorNone {
		t.Errorf("saving appeared after a failed save: status = %v", got)
	}
}

func TestIndicatorSlowSaveShowsSaving(t *testing.T) {
	set, sched, cfg := testIndicators(t)
	key := CellKey(1, FieldComment)

	set.BeginSave(key)
	sched.Advance(cfg.SavingDelay)
	if got := set.Status(key); got != IndicatorSaving {
		t.Fatalf("status after SavingDelay = %v; want Saving", got)
	}

	// Save completes long after the minimum visibility window: settle at once.
	sched.Advance(cfg.MinVisible + time.Millisecond)
	set.FinishSave(key, nil)
	if got := set.Status(key); got != IndicatorSaved {
		t.Fatalf("status after slow save = %v; want Saved", got)
	}
}

func TestIndicatorMinVisibleEnforced(t *testing.T) {
	set, sched, cfg := testIndicators(t)
	key := CellKey(1, FieldComment)

	set.BeginSave(key)
	sched.Advance(cfg.SavingDelay)
	if got := set.Status(key); got != IndicatorSaving {
		t.Fatalf("status = %v; want Saving", got)
	}

	// Completion lands while saving is barely on screen; it must stay visible
	// for the full MinVisible before flipping to saved.
	set.FinishSave(key, nil)
	if got := set.Status(key); got != IndicatorSaving {
		t.Fatalf("saved shown before MinVisible elapsed: status = %v", got)
	}
	sched.Advance(cfg.MinVisible / 2)
	if got := set.Status(key); got != IndicatorSaving {
		t.Fatalf("saving dismissed early: status = %v", got)
	}
	sched.Advance(cfg.MinVisible / 2)
	if got := set.Status(key); got != IndicatorSaved {
		t.Fatalf("status after MinVisible = %v; want Saved", got)
	}

	sched.Advance(cfg.SavedVisible)
	if got := set.Status(key); got != IndicatorNone {
		t.Errorf("saved indicator did not auto-dismiss: status = %v", got)
	}
}

func TestIndicatorErrorWhileSavingVisible(t *testing.T) {
	set, sched, cfg := testIndicators(t)
	key := CellKey(1, FieldComment)

	set.BeginSave(key)
	sched.Advance(cfg.SavingDelay)
	set.FinishSave(key, errors.New("write failed"))

	// The failure settles after the minimum visibility, removing everything.
	sched.Advance(cfg.MinVisible)
	if got := set.Status(key); got != IndicatorNone {
		t.Errorf("status after failed save = %v; want None", got)
	}
	sched.Advance(cfg.SavedVisible)
	if got := set.Status(key); got != IndicatorNone {
		t.Errorf("indicator resurrected after failure: status = %v", got)
	}
}

func TestIndicatorSupersededByNewSave(t *testing.T) {
	set, sched, cfg := testIndicators(t)
	key := CellKey(1, FieldComment)

	set.BeginSave(key)
	sched.Advance(cfg.SavingDelay)
	if got := set.Status(key); got != IndicatorSaving {
		t.Fatalf("status = %v; want Saving", got)
	}

	// A new save for the same cell resets the choreography.
	set.BeginSave(key)
	if got := set.Status(key); got != IndicatorNone {
		t.Fatalf("status after superseding BeginSave = %v; want None", got)
	}

	set.FinishSave(key, nil)
	if got := set.Status(key); got != IndicatorSaved {
		t.Fatalf("status = %v; want Saved for the new save", got)
	}
	sched.Advance(cfg.SavedVisible)
	if got := set.Status(key); got != IndicatorNone {
		t.Errorf("status = %v; want None after dismissal", got)
	}
}

func TestIndicatorCellsAreIndependent(t *testing.T) {
	set, sched, cfg := testIndicators(t)
	commentKey := CellKey(1, FieldComment)
	flagKey := CellKey(1, FieldNeedToSend)

	set.BeginSave(commentKey)
	set.BeginSave(flagKey)
	sched.Advance(cfg.SavingDelay)
	set.FinishSave(flagKey, nil)

	sched.Advance(cfg.MinVisible)
	if got := set.Status(commentKey); got != IndicatorSaving {
		t.Errorf("comment cell = %v; want Saving while its save is open", got)
	}
	if got := set.Status(flagKey); got != IndicatorSaved {
		t.Errorf("flag cell = %v; want Saved", got)
	}
}

func TestIndicatorClose(t *testing.T) {
	set, sched, cfg := testIndicators(t)
	key := CellKey(1, FieldComment)

	set.BeginSave(key)
	set.Close()

	sched.Advance(cfg.SavingDelay + cfg.MinVisible + cfg.SavedVisible)
	if got := set.Status(key); got != IndicatorNone {
		t.Errorf("status after Close = %v; want None", got)
	}
}
