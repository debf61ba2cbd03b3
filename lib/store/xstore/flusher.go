package xstore

import (
	"time"

	"github.com/ValentinKolb/xdb/lib/store"
)

// --------------------------------------------------------------------------
// Background Flush
// --------------------------------------------------------------------------

// flushLoop is the background persistence loop. It sleeps in ticks of
// TickInterval and checks the dirty flag every FlushTicks ticks. The timer is
// only re-armed after a save returned, so the real interval grows by the time
// the save took. On stop it performs one final unconditional save.
// WARNING: this method must only be started once, by Open!
//
// Thread-safety: This function is not thread-safe!
func (s *Store) flushLoop() {
	defer close(s.doneCh)

	timer := time.NewTimer(s.opts.TickInterval)
	defer timer.Stop()

	ticks := 0
	for {
		select {
		case <-s.stopCh:
			s.stopErr = s.finalFlush()
			return
		case <-timer.C:
		}

		ticks++
		if ticks >= s.opts.FlushTicks {
			ticks = 0
			s.flushIfDirty()
		}
		timer.Reset(s.opts.TickInterval)
	}
}

// flushIfDirty saves the table if it changed since the last save.
// A failed save is logged and counted; the dirty flag stays set so the next
// cycle retries.
func (s *Store) flushIfDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty || s.stopped {
		return
	}
	if err := s.saveLocked(); err != nil {
		s.log.Errorf("background flush of %s failed (will retry): %v", s.path, err)
		return
	}
	s.log.Debugf("flushed %s (%d records)", s.path, len(s.table))
}

// finalFlush performs the last save and marks the store as stopped.
func (s *Store) finalFlush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if err := s.saveLocked(); err != nil {
		s.log.Errorf("final flush of %s failed: %v", s.path, err)
		return err
	}
	s.log.Infof("stopped %s (%d records saved)", s.path, len(s.table))
	return nil
}

// saveLocked writes the table to disk and clears the dirty flag on success.
//
// Thread-safety: caller must hold s.mu.
func (s *Store) saveLocked() error {
	start := time.Now()
	n, err := s.engine.Save(s.path, s.table)
	if err != nil {
		s.metrics.flushErrors.Inc()
		return store.WrapError(store.RetCPersistence, "save failed", err)
	}

	s.metrics.flushDuration.UpdateDuration(start)
	s.metrics.flushes.Inc()
	s.metrics.snapshotBytes.Store(int64(n))
	s.flushes++
	s.lastFlush = time.Now()
	s.dirty = false
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IObjectStore)
// --------------------------------------------------------------------------

func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return errStopped()
	}
	return s.saveLocked()
}

// Stop signals the flush goroutine, waits until it performed the final save
// and terminated, and returns the error of that save. Calling Stop again
// returns the same result without doing anything.
func (s *Store) Stop() error {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
	return s.stopErr
}
