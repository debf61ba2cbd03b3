package testing

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/ValentinKolb/xdb/lib/store"
)

// StoreFactory opens a store backed by path with the given primary key ("" = none).
// Opening the same path again after Stop must yield the persisted state.
type StoreFactory func(t testing.TB, path string, primaryKey string) store.IObjectStore

// RunObjectStoreTests runs a comprehensive test suite for an IObjectStore implementation.
func RunObjectStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Create&Get", func(t *testing.T) {
			testCreateGet(t, open(t, factory, ""))
		})

		t.Run("CopySemantics", func(t *testing.T) {
			testCopySemantics(t, open(t, factory, "k"))
		})

		t.Run("Validation", func(t *testing.T) {
			testValidation(t, open(t, factory, "k"))
		})

		t.Run("PrimaryKeyUniqueness", func(t *testing.T) {
			testPrimaryKeyUniqueness(t, open(t, factory, "k"))
		})

		t.Run("IndexRelocation", func(t *testing.T) {
			testIndexRelocation(t, open(t, factory, "k"))
		})

		t.Run("DeleteConsistency", func(t *testing.T) {
			testDeleteConsistency(t, open(t, factory, "k"))
		})

		t.Run("SetSemantics", func(t *testing.T) {
			testSetSemantics(t, open(t, factory, "k"))
		})

		t.Run("NoPrimaryKey", func(t *testing.T) {
			testNoPrimaryKey(t, open(t, factory, ""))
		})

		t.Run("GetByProperty&Filter", func(t *testing.T) {
			testScan(t, open(t, factory, ""))
		})

		t.Run("ConcurrentCreate", func(t *testing.T) {
			testConcurrentCreate(t, open(t, factory, "k"))
		})

		t.Run("ConcurrentMixed", func(t *testing.T) {
			testConcurrentMixed(t, open(t, factory, "k"))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("ExpiringSession", func(t *testing.T) {
			testExpiringSession(t, factory)
		})

		t.Run("Stop", func(t *testing.T) {
			testStop(t, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// open creates a store in a fresh temp dir which is stopped when the test ends
func open(t *testing.T, factory StoreFactory, primaryKey string) store.IObjectStore {
	s := factory(t, filepath.Join(t.TempDir(), "store"), primaryKey)
	t.Cleanup(func() {
		_ = s.Stop()
	})
	return s
}

func mustCreate(t testing.TB, s store.IObjectStore, fields ...record.Field) string {
	t.Helper()
	id, err := s.Create(fields...)
	if err != nil {
		t.Fatalf("Create(%v) failed: %v", fields, err)
	}
	if id == "" {
		t.Fatalf("Create returned an empty identifier")
	}
	return id
}

func mustLen(t testing.TB, s store.IObjectStore) int {
	t.Helper()
	n, err := s.Len()
	if err != nil {
		t.Fatalf("Len failed: %v", err)
	}
	return n
}

func expectCode(t testing.TB, err error, code store.RetCode) {
	t.Helper()
	if !store.IsCode(err, code) {
		t.Errorf("expected error with code %s, got %v", code, err)
	}
}

func fieldEquals(r *record.Record, name string, want any) bool {
	v, ok := r.Get(name)
	if !ok {
		return false
	}
	return v.Equal(record.MustValueOf(want))
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testCreateGet(t *testing.T, s store.IObjectStore) {
	fields := []record.Field{
		record.F("name", "alpha"),
		record.F("port", 8080),
		record.F("tags", []any{"a", "b"}),
		record.F("meta", map[string]any{"nested": true}),
		record.F("none", nil),
	}
	id := mustCreate(t, s, fields...)

	r, ok, err := s.GetByID(id)
	if err != nil || !ok {
		t.Fatalf("GetByID(%s) = %v, %v", id, ok, err)
	}

	want, err := record.FromFields(fields...)
	if err != nil {
		t.Fatal(err)
	}
	want.Set(record.IDField, record.String(id))
	if !r.Equal(want) {
		t.Errorf("GetByID returned %s, want %s", r, want)
	}
	if r.ID() != id {
		t.Errorf("record carries id %q, want %q", r.ID(), id)
	}

	if _, ok, err := s.GetByID("does-not-exist"); ok || err != nil {
		t.Errorf("GetByID(missing) = %v, %v; want false, nil", ok, err)
	}

	other := mustCreate(t, s, record.F("name", "beta"))
	if other == id {
		t.Errorf("two creates returned the same identifier %s", id)
	}
	if n := mustLen(t, s); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}

func testCopySemantics(t *testing.T, s store.IObjectStore) {
	id := mustCreate(t, s, record.F("k", "x"), record.F("v", 1))

	r, _, _ := s.GetByID(id)
	r.Set("v", record.Number(2))
	r.Set("k", record.String("y"))
	r.Set(record.IDField, record.String("hijacked"))

	again, ok, _ := s.GetByID(id)
	if !ok || !fieldEquals(again, "v", 1) || !fieldEquals(again, "k", "x") || again.ID() != id {
		t.Errorf("mutating a returned record changed the store: %s", again)
	}
	if _, ok, _ := s.GetByKey("y"); ok {
		t.Errorf("mutating a returned record changed the index")
	}

	rs, _ := s.Filter(nil)
	for _, r := range rs {
		r.Delete("v")
	}
	again, _, _ = s.GetByKey("x")
	if !again.Has("v") {
		t.Errorf("mutating a filtered record changed the store")
	}
}

func testValidation(t *testing.T, s store.IObjectStore) {
	before := mustLen(t, s)

	_, err := s.Create(record.F("fn", func() {}))
	expectCode(t, err, store.RetCValidation)

	_, err = s.Create(record.F("ok", 1), record.F("bad", make(chan int)))
	expectCode(t, err, store.RetCValidation)

	_, err = s.Create(record.F(record.IDField, "chosen-by-caller"))
	expectCode(t, err, store.RetCValidation)

	_, err = s.Create(record.F("dup", 1), record.F("dup", 2))
	expectCode(t, err, store.RetCValidation)

	// integers that can't be held exactly are rejected instead of rounded
	_, err = s.Create(record.F("big", int64(record.MaxExactInt+1)))
	expectCode(t, err, store.RetCValidation)

	if after := mustLen(t, s); after != before {
		t.Errorf("failed creates changed the record count from %d to %d", before, after)
	}

	id := mustCreate(t, s, record.F("k", "x"))
	_, err = s.SetByID(id, "v", struct{}{})
	expectCode(t, err, store.RetCValidation)
	_, err = s.SetByID(id, record.IDField, "other")
	expectCode(t, err, store.RetCInvalidOperation)
	_, err = s.SetByKey("x", record.IDField, "other")
	expectCode(t, err, store.RetCInvalidOperation)

	_, err = s.SetByID(id, "v", uint64(record.MaxExactInt+1))
	expectCode(t, err, store.RetCValidation)

	r, _, _ := s.GetByID(id)
	if r.ID() != id || r.Has("v") {
		t.Errorf("rejected sets changed the record: %s", r)
	}

	// the largest exact integer is stored and read back unchanged
	bigID := mustCreate(t, s, record.F("k", int64(record.MaxExactInt)), record.F("v", int64(-record.MaxExactInt)))
	r, _, _ = s.GetByID(bigID)
	if !fieldEquals(r, "k", int64(record.MaxExactInt)) || !fieldEquals(r, "v", int64(-record.MaxExactInt)) {
		t.Errorf("exact integers were not kept: %s", r)
	}
	_, err = s.Create(record.F("k", int64(record.MaxExactInt+1)))
	expectCode(t, err, store.RetCValidation)
}

func testPrimaryKeyUniqueness(t *testing.T, s store.IObjectStore) {
	mustCreate(t, s, record.F("k", "x"), record.F("n", 1))
	before, _ := s.Filter(nil)

	_, err := s.Create(record.F("k", "x"), record.F("n", 2))
	expectCode(t, err, store.RetCDuplicateKey)

	after, _ := s.Filter(nil)
	if len(after) != len(before) {
		t.Fatalf("duplicate create changed cardinality from %d to %d", len(before), len(after))
	}
	r, ok, _ := s.GetByKey("x")
	if !ok || !fieldEquals(r, "n", 1) {
		t.Errorf("duplicate create changed the existing record: %s", r)
	}

	// null and missing primary keys are never indexed and never collide
	mustCreate(t, s, record.F("k", nil))
	mustCreate(t, s, record.F("k", nil))
	mustCreate(t, s, record.F("other", 1))
	if _, ok, _ := s.GetByKey(nil); ok {
		t.Errorf("GetByKey(nil) found a record")
	}

	// numbers are compared by value, not by Go type
	mustCreate(t, s, record.F("k", 5))
	_, err = s.Create(record.F("k", 5.0))
	expectCode(t, err, store.RetCDuplicateKey)
	if _, ok, _ := s.GetByKey(int64(5)); !ok {
		t.Errorf("GetByKey(int64(5)) did not find record created with k=5")
	}

	// setting the key of another record to a taken value fails without mutation
	id := mustCreate(t, s, record.F("k", "z"))
	_, err = s.SetByID(id, "k", "x")
	expectCode(t, err, store.RetCDuplicateKey)
	if r, ok, _ := s.GetByKey("z"); !ok || r.ID() != id {
		t.Errorf("failed key change moved the index entry")
	}
	if r, _, _ := s.GetByKey("x"); r.ID() == id {
		t.Errorf("failed key change stole the index entry")
	}
}

func testIndexRelocation(t *testing.T, s store.IObjectStore) {
	id := mustCreate(t, s, record.F("k", "x"), record.F("v", 1))

	ok, err := s.SetByKey("x", "k", "y")
	if err != nil || !ok {
		t.Fatalf("SetByKey(x, k, y) = %v, %v", ok, err)
	}
	if _, found, _ := s.GetByKey("x"); found {
		t.Errorf("old key x still resolves after relocation")
	}
	r, found, _ := s.GetByKey("y")
	if !found || r.ID() != id || !fieldEquals(r, "k", "y") {
		t.Errorf("new key y does not resolve to the updated record: %v %s", found, r)
	}

	// relocation through SetByID
	if ok, err := s.SetByID(id, "k", "z"); err != nil || !ok {
		t.Fatalf("SetByID(k=z) = %v, %v", ok, err)
	}
	if _, found, _ := s.GetByKey("y"); found {
		t.Errorf("key y still resolves after SetByID relocation")
	}
	if r, found, _ := s.GetByKey("z"); !found || r.ID() != id {
		t.Errorf("key z does not resolve after SetByID relocation")
	}

	// setting the key to null drops it from the index
	if ok, err := s.SetByKey("z", "k", nil); err != nil || !ok {
		t.Fatalf("SetByKey(z, k, nil) = %v, %v", ok, err)
	}
	if _, found, _ := s.GetByKey("z"); found {
		t.Errorf("key z still resolves after setting it to null")
	}
	if _, found, _ := s.GetByID(id); !found {
		t.Errorf("record vanished after setting its key to null")
	}

	// and setting it again re-indexes
	if ok, _ := s.SetByID(id, "k", "again"); !ok {
		t.Fatalf("SetByID(k=again) failed")
	}
	if r, found, _ := s.GetByKey("again"); !found || r.ID() != id {
		t.Errorf("key again does not resolve")
	}
}

func testDeleteConsistency(t *testing.T, s store.IObjectStore) {
	id := mustCreate(t, s, record.F("k", "v"))
	keep := mustCreate(t, s, record.F("k", "w"))

	ok, err := s.RemoveByID(id)
	if err != nil || !ok {
		t.Fatalf("RemoveByID = %v, %v", ok, err)
	}
	if _, found, _ := s.GetByID(id); found {
		t.Errorf("GetByID found removed record")
	}
	if _, found, _ := s.GetByKey("v"); found {
		t.Errorf("GetByKey found removed record")
	}
	if ok, _ := s.RemoveByID(id); ok {
		t.Errorf("second RemoveByID reported success")
	}

	// the key is free again
	mustCreate(t, s, record.F("k", "v"))

	ok, err = s.RemoveByKey("w")
	if err != nil || !ok {
		t.Fatalf("RemoveByKey = %v, %v", ok, err)
	}
	if _, found, _ := s.GetByID(keep); found {
		t.Errorf("GetByID found record removed by key")
	}
	if ok, _ := s.RemoveByKey("w"); ok {
		t.Errorf("second RemoveByKey reported success")
	}
	if n := mustLen(t, s); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func testSetSemantics(t *testing.T, s store.IObjectStore) {
	id := mustCreate(t, s, record.F("k", "x"), record.F("a", 1))

	if ok, err := s.SetByID("missing", "a", 2); ok || err != nil {
		t.Errorf("SetByID(missing) = %v, %v; want false, nil", ok, err)
	}
	if ok, err := s.SetByKey("missing", "a", 2); ok || err != nil {
		t.Errorf("SetByKey(missing) = %v, %v; want false, nil", ok, err)
	}

	if ok, err := s.SetByID(id, "b", []any{1, 2}); !ok || err != nil {
		t.Fatalf("SetByID(new field) = %v, %v", ok, err)
	}
	if ok, err := s.SetByKey("x", "a", "changed"); !ok || err != nil {
		t.Fatalf("SetByKey(existing field) = %v, %v", ok, err)
	}

	r, _, _ := s.GetByID(id)
	if !fieldEquals(r, "a", "changed") || !fieldEquals(r, "b", []any{1, 2}) {
		t.Errorf("unexpected record after sets: %s", r)
	}

	// setting the primary key to its current value is a no-op
	if ok, err := s.SetByKey("x", "k", "x"); !ok || err != nil {
		t.Errorf("SetByKey(k unchanged) = %v, %v", ok, err)
	}
	if _, found, _ := s.GetByKey("x"); !found {
		t.Errorf("key x lost after no-op set")
	}
}

func testNoPrimaryKey(t *testing.T, s store.IObjectStore) {
	mustCreate(t, s, record.F("k", "x"))
	mustCreate(t, s, record.F("k", "x")) // no index, no uniqueness

	_, _, err := s.GetByKey("x")
	expectCode(t, err, store.RetCInvalidOperation)
	_, err = s.SetByKey("x", "a", 1)
	expectCode(t, err, store.RetCInvalidOperation)
	_, err = s.RemoveByKey("x")
	expectCode(t, err, store.RetCInvalidOperation)

	if n := mustLen(t, s); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}

func testScan(t *testing.T, s store.IObjectStore) {
	for i := 0; i < 10; i++ {
		mustCreate(t, s, record.F("n", i), record.F("even", i%2 == 0), record.F("name", fmt.Sprintf("item-%d", i)))
	}

	r, ok, err := s.GetByProperty("name", "item-7")
	if err != nil || !ok || !fieldEquals(r, "n", 7) {
		t.Errorf("GetByProperty(name, item-7) = %s, %v, %v", r, ok, err)
	}
	if _, ok, _ := s.GetByProperty("name", "item-99"); ok {
		t.Errorf("GetByProperty found a missing value")
	}
	if _, ok, _ := s.GetByProperty("missing-field", nil); ok {
		t.Errorf("GetByProperty matched a missing field against null")
	}
	_, _, err = s.GetByProperty("name", func() {})
	expectCode(t, err, store.RetCValidation)

	even, err := s.Filter(func(r *record.Record) bool {
		return fieldEquals(r, "even", true)
	})
	if err != nil || len(even) != 5 {
		t.Errorf("Filter(even) returned %d records, err %v", len(even), err)
	}

	all, err := s.Filter(nil)
	if err != nil || len(all) != 10 {
		t.Errorf("Filter(nil) returned %d records, err %v", len(all), err)
	}

	none, err := s.Filter(func(*record.Record) bool { return false })
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("Filter(false) = %v, %v; want empty slice", none, err)
	}
}

func testConcurrentCreate(t *testing.T, s store.IObjectStore) {
	const (
		goroutines = 16
		perRoutine = 50
	)
	before := mustLen(t, s)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[string]struct{})
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perRoutine; i++ {
				id, err := s.Create(record.F("k", fmt.Sprintf("%d-%d", g, i)))
				if err != nil {
					t.Errorf("concurrent Create failed: %v", err)
					return
				}
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}(g)
	}
	wg.Wait()

	if len(ids) != goroutines*perRoutine {
		t.Fatalf("got %d distinct ids, want %d", len(ids), goroutines*perRoutine)
	}
	for id := range ids {
		if _, ok, _ := s.GetByID(id); !ok {
			t.Fatalf("record %s not retrievable", id)
		}
	}
	if after := mustLen(t, s); after-before != goroutines*perRoutine {
		t.Errorf("record count grew by %d, want %d", after-before, goroutines*perRoutine)
	}
}

func testConcurrentMixed(t *testing.T, s store.IObjectStore) {
	const goroutines = 8

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("g%d-%d", g, i)
				id, err := s.Create(record.F("k", key))
				if err != nil {
					t.Errorf("Create failed: %v", err)
					return
				}
				if ok, err := s.SetByKey(key, "k", key+"-moved"); !ok || err != nil {
					t.Errorf("SetByKey failed: %v %v", ok, err)
					return
				}
				if _, ok, _ := s.GetByKey(key + "-moved"); !ok {
					t.Errorf("moved key %s not found", key)
					return
				}
				if i%2 == 0 {
					if ok, _ := s.RemoveByID(id); !ok {
						t.Errorf("RemoveByID(%s) failed", id)
						return
					}
				}
				if _, err := s.Filter(nil); err != nil {
					t.Errorf("Filter failed: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	// every remaining record must be reachable through its key and vice versa
	rs, _ := s.Filter(nil)
	if len(rs) != goroutines*50 {
		t.Errorf("Filter returned %d records, want %d", len(rs), goroutines*50)
	}
	for _, r := range rs {
		k, _ := r.Get("k")
		got, ok, _ := s.GetByKey(k.Interface())
		if !ok || got.ID() != r.ID() {
			t.Errorf("index does not resolve %s to %s", k, r.ID())
		}
	}
}

func testSaveLoad(t *testing.T, factory StoreFactory) {
	path := filepath.Join(t.TempDir(), "persist")
	s := factory(t, path, "k")

	for i := 0; i < 20; i++ {
		mustCreate(t, s, record.F("k", fmt.Sprintf("key-%d", i)), record.F("n", i), record.F("nested", map[string]any{"i": i}))
	}
	_, _ = s.RemoveByKey("key-3")
	_, _ = s.SetByKey("key-4", "k", "renamed")

	before, _ := s.Filter(nil)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	reopened := factory(t, path, "k")
	defer reopened.Stop()

	after, _ := reopened.Filter(nil)
	if len(after) != len(before) {
		t.Fatalf("reopened store has %d records, want %d", len(after), len(before))
	}
	byID := make(map[string]*record.Record, len(after))
	for _, r := range after {
		byID[r.ID()] = r
	}
	for _, r := range before {
		if other, ok := byID[r.ID()]; !ok || !other.Equal(r) {
			t.Errorf("record %s changed across reload", r.ID())
		}
	}

	// the index is rebuilt
	if _, ok, _ := reopened.GetByKey("renamed"); !ok {
		t.Errorf("index not rebuilt: renamed not found")
	}
	if _, ok, _ := reopened.GetByKey("key-4"); ok {
		t.Errorf("index not rebuilt: stale key-4 found")
	}
	if _, ok, _ := reopened.GetByKey("key-3"); ok {
		t.Errorf("removed record came back after reload")
	}
}

func testExpiringSession(t *testing.T, factory StoreFactory) {
	s := open(t, factory, "sessionId")

	expired := float64(time.Now().Add(-10*time.Second).UnixNano()) / 1e9
	mustCreate(t, s,
		record.F("sessionId", "abc123"),
		record.F("refId", "user1"),
		record.F("expire", expired),
	)

	// consumer side expiry check
	r, ok, err := s.GetByKey("abc123")
	if err != nil || !ok {
		t.Fatalf("session not found: %v", err)
	}
	exp, _ := r.Get("expire")
	if at, ok := exp.AsNumber(); ok && float64(time.Now().UnixNano())/1e9 > at {
		if removed, err := s.RemoveByKey("abc123"); !removed || err != nil {
			t.Fatalf("RemoveByKey = %v, %v", removed, err)
		}
	} else {
		t.Fatalf("session with expire %s was not considered expired", exp)
	}

	if _, ok, _ := s.GetByKey("abc123"); ok {
		t.Errorf("expired session still resolvable")
	}
	rs, _ := s.Filter(nil)
	for _, r := range rs {
		if fieldEquals(r, "sessionId", "abc123") {
			t.Errorf("expired session still present in Filter")
		}
	}
}

func testStop(t *testing.T, factory StoreFactory) {
	path := filepath.Join(t.TempDir(), "stop")
	s := factory(t, path, "")
	id := mustCreate(t, s, record.F("a", 1))

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}

	_, err := s.Create(record.F("a", 2))
	expectCode(t, err, store.RetCStopped)
	_, _, err = s.GetByID(id)
	expectCode(t, err, store.RetCStopped)

	// Stop flushed without waiting for the background interval
	reopened := factory(t, path, "")
	defer reopened.Stop()
	if _, ok, _ := reopened.GetByID(id); !ok {
		t.Errorf("record created right before Stop was not persisted")
	}
}
