package testing

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/ValentinKolb/xdb/lib/store"
)

// RunObjectStoreBenchmarks runs all benchmarks for an object store implementation
func RunObjectStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {

	b.Run("Create", func(b *testing.B) {
		benchmarkCreate(b, openB(b, factory, "k"))
	})

	b.Run("GetByID", func(b *testing.B) {
		benchmarkGetByID(b, openB(b, factory, "k"))
	})

	b.Run("GetByKey", func(b *testing.B) {
		benchmarkGetByKey(b, openB(b, factory, "k"))
	})

	b.Run("SetByKey", func(b *testing.B) {
		benchmarkSetByKey(b, openB(b, factory, "k"))
	})

	b.Run("Filter(1k)", func(b *testing.B) {
		benchmarkFilter(b, openB(b, factory, ""))
	})

	b.Run("Flush(1k)", func(b *testing.B) {
		benchmarkFlush(b, openB(b, factory, "k"))
	})
}

func openB(b *testing.B, factory StoreFactory, primaryKey string) store.IObjectStore {
	s := factory(b, filepath.Join(b.TempDir(), "bench"), primaryKey)
	b.Cleanup(func() {
		_ = s.Stop()
	})
	return s
}

func fill(b *testing.B, s store.IObjectStore, n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = mustCreate(b, s, record.F("k", fmt.Sprintf("key-%d", i)), record.F("n", i))
	}
	return ids
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkCreate(b *testing.B, s store.IObjectStore) {
	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			_, _ = s.Create(record.F("k", fmt.Sprintf("key-%d", i)), record.F("n", i))
		}
	})
}

func benchmarkGetByID(b *testing.B, s store.IObjectStore) {
	ids := fill(b, s, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _, _ = s.GetByID(ids[i%len(ids)])
			i++
		}
	})
}

func benchmarkGetByKey(b *testing.B, s store.IObjectStore) {
	fill(b, s, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _, _ = s.GetByKey(fmt.Sprintf("key-%d", i%1000))
			i++
		}
	})
}

func benchmarkSetByKey(b *testing.B, s store.IObjectStore) {
	fill(b, s, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = s.SetByKey(fmt.Sprintf("key-%d", i%1000), "n", i)
			i++
		}
	})
}

func benchmarkFilter(b *testing.B, s store.IObjectStore) {
	fill(b, s, 1000)
	five := record.Number(5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Filter(func(r *record.Record) bool {
			v, _ := r.Get("n")
			return v.Equal(five)
		})
	}
}

func benchmarkFlush(b *testing.B, s store.IObjectStore) {
	fill(b, s, 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Flush(); err != nil {
			b.Fatal(err)
		}
	}
}
