// Package xstore implements a file-backed, single-host object store based on the
// store.IObjectStore interface. Records live in memory and are periodically
// written to one compressed snapshot file (extension ".xdb") by a background
// goroutine.
//
// Key Features:
//   - Schema-free records (see package record) with a store assigned "_id"
//   - Optional unique primary-key index over one field
//   - Crash-safe persistence through atomic file replacement
//   - Background flush of dirty state and a final flush on Stop
//   - Metrics through github.com/VictoriaMetrics/metrics
//
// Implementation Details:
//
//   - Primary Table and Index: A map from identifier to record and, if a primary
//     key is configured, a map from the canonical key of the primary-key value
//     (record.Value.Key) to the identifier. Null primary-key values are not indexed.
//     Both maps are always updated in the same critical section.
//
//   - Concurrency Guard: One sync.Mutex per store. Every operation and every save
//     holds it for its whole duration; there is no reader/writer split and no
//     lock-free fast path. A save performs file I/O while holding the lock, so
//     operations block for the duration of a flush.
//
//   - Background Flush: The flush goroutine sleeps TickInterval at a time and
//     checks the dirty flag every FlushTicks ticks (default 5 x 1 sec). The
//     interval is approximate: the next tick starts only after the previous save
//     returned. Saving and clearing the dirty flag happen under the same lock,
//     so no mutation can slip in between and be lost.
//
//   - Save Failures: A failed background save is logged at error level and
//     counted in xdb_flush_errors_total. The dirty flag stays set, so the save is
//     retried on the next cycle. The process is never terminated by the store.
//
//   - Stop: Stop is synchronous. It signals the flush goroutine, which performs one
//     final save regardless of the dirty flag and exits. Stop returns the error of
//     that save. Afterwards every operation fails with store.RetCStopped.
//
// Persistence Format:
//
//	See package snapshot. The file carries no version marker, so codec and
//	compressor must be configured identically for every process opening it.
//
// Usage Example:
//
//	s, err := xstore.Open("data/sessions", &xstore.Options{PrimaryKey: "sessionId"})
//	if err != nil {
//		return err
//	}
//	defer s.Stop()
//
//	id, err := s.Create(record.F("sessionId", "abc123"), record.F("refId", "user1"))
//	r, found, err := s.GetByKey("abc123")
package xstore
