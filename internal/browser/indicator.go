// internal/browser/indicator.go
package browser

import (
	"sync"
	"time"
)

// IndicatorStatus is the UI-visible save feedback for one cell.
type IndicatorStatus int

const (
	IndicatorNone IndicatorStatus = iota
	IndicatorSaving
	IndicatorSaved
)

// IndicatorConfig holds the timer choreography for save feedback. The saving
// indicator appears only after SavingDelay, so fast saves never flicker; once
// visible it stays for at least MinVisible; the saved indicator auto-dismisses
// after SavedVisible.
type IndicatorConfig struct {
	SavingDelay  time.Duration
	MinVisible   time.Duration
	SavedVisible time.Duration
}

// DefaultIndicatorConfig returns the stock timings.
func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		SavingDelay:  180 * time.Millisecond,
		MinVisible:   350 * time.Millisecond,
		SavedVisible: 1500 * time.Millisecond,
	}
}

type cellIndicator struct {
	gen     uint64
	status  IndicatorStatus
	shownAt time.Time
	timer   Timer
}

// IndicatorSet runs one save-feedback state machine per cell key. A new save
// for the same key supersedes the previous one: its timers are cancelled and
// stale callbacks are discarded by generation check.
type IndicatorSet struct {
	mu    sync.Mutex
	cfg   IndicatorConfig
	sched Scheduler
	now   func() time.Time
	cells map[string]*cellIndicator
}

// NewIndicatorSet creates an IndicatorSet driven by the given scheduler.
func NewIndicatorSet(cfg IndicatorConfig, sched Scheduler) *IndicatorSet {
	return &IndicatorSet{
		cfg:   cfg,
		sched: sched,
		now:   time.Now,
		cells: make(map[string]*cellIndicator),
	}
}

// SetClock overrides the time source. Tests only.
func (s *IndicatorSet) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// BeginSave starts the choreography for a cell: any previous indicator state
// for the key is cancelled, and a saving indicator is scheduled to appear
// after the configured delay.
func (s *IndicatorSet) BeginSave(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, ok := s.cells[key]
	if !ok {
		cell = &cellIndicator{}
		s.cells[key] = cell
	}
	cell.gen++
	s.stopTimerLocked(cell)
	cell.status = IndicatorNone

	gen := cell.gen
	cell.timer = s.sched.AfterFunc(s.cfg.SavingDelay, func() {
		s.showSaving(key, gen)
	})
}

func (s *IndicatorSet) showSaving(key string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, ok := s.cells[key]
	if !ok || cell.gen != gen || cell.status != IndicatorNone {
		return
	}
	cell.status = IndicatorSaving
	cell.shownAt = s.now()
}

// FinishSave completes the choreography. On success the saved indicator is
// shown (after the minimum-visible enforcement when saving is on screen) and
// auto-dismissed; on error everything is removed and the caller's error
// message becomes the persistent feedback.
func (s *IndicatorSet) FinishSave(key string, saveErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cell, ok := s.cells[key]
	if !ok {
		return
	}
	gen := cell.gen

	switch cell.status {
	case IndicatorNone:
		// Completed before the saving indicator ever appeared.
		s.stopTimerLocked(cell)
		if saveErr == nil {
			s.showSavedLocked(key, cell)
		} else {
			delete(s.cells, key)
		}

	case IndicatorSaving:
		remaining := s.cfg.MinVisible - s.now().Sub(cell.shownAt)
		if remaining <= 0 {
			s.settleLocked(key, cell, saveErr)
			return
		}
		cell.timer = s.sched.AfterFunc(remaining, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			c, ok := s.cells[key]
			if !ok || c.gen != gen || c.status != IndicatorSaving {
				return
			}
			s.settleLocked(key, c, saveErr)
		})

	case IndicatorSaved:
		// A stray completion for an already-settled cell; ignore.
	}
}

func (s *IndicatorSet) settleLocked(key string, cell *cellIndicator, saveErr error) {
	if saveErr == nil {
		s.showSavedLocked(key, cell)
	} else {
		s.stopTimerLocked(cell)
		delete(s.cells, key)
	}
}

func (s *IndicatorSet) showSavedLocked(key string, cell *cellIndicator) {
	cell.status = IndicatorSaved
	cell.shownAt = s.now()
	gen := cell.gen
	cell.timer = s.sched.AfterFunc(s.cfg.SavedVisible, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		c, ok := s.cells[key]
		if !ok || c.gen != gen || c.status != IndicatorSaved {
			return
		}
		delete(s.cells, key)
	})
}

// Status reports the indicator currently visible for a cell.
func (s *IndicatorSet) Status(key string) IndicatorStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cell, ok := s.cells[key]; ok {
		return cell.status
	}
	return IndicatorNone
}

// Close cancels every pending timer and clears all state. Call on unmount so
// stale callbacks cannot resurrect a removed indicator.
func (s *IndicatorSet) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cell := range s.cells {
		cell.gen++ // invalidate in-flight callbacks
		s.stopTimerLocked(cell)
		delete(s.cells, key)
	}
}

func (s *IndicatorSet) stopTimerLocked(cell *cellIndicator) {
	if cell.timer != nil {
		cell.timer.Stop()
		cell.timer = nil
	}
}
