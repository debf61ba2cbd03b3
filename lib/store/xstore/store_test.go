package xstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/ValentinKolb/xdb/lib/snapshot"
	"github.com/ValentinKolb/xdb/lib/store"
	storetesting "github.com/ValentinKolb/xdb/lib/store/testing"
	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func factory(t testing.TB, path string, primaryKey string) store.IObjectStore {
	s, err := Open(path, &Options{
		PrimaryKey:   primaryKey,
		FlushTicks:   2,
		TickInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open(%s) failed: %v", path, err)
	}
	return s
}

func Test(t *testing.T) {
	storetesting.RunObjectStoreTests(t, "XStore", factory)
}

func Benchmark(b *testing.B) {
	storetesting.RunObjectStoreBenchmarks(b, "XStore", factory)
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// flakyCompressor fails every call while fail is set.
type flakyCompressor struct {
	snapshot.ICompressor
	fail atomic.Bool
}

var errDiskFull = errors.New("disk full")

func (f *flakyCompressor) Compress(b []byte) ([]byte, error) {
	if f.fail.Load() {
		return nil, errDiskFull
	}
	return f.ICompressor.Compress(b)
}

func openT(t *testing.T, path string, opts *Options) *Store {
	t.Helper()
	s, err := Open(path, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func loadFile(t *testing.T, path string) snapshot.Table {
	t.Helper()
	table, err := snapshot.NewEngine(nil, nil).Load(FilePath(path))
	require.NoError(t, err)
	return table
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestFilePath(t *testing.T) {
	assert.Equal(t, "data/x.xdb", FilePath("data/x"))
	assert.Equal(t, "data/x.xdb", FilePath("data/x.xdb"))
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "sessions")
	s := openT(t, path, nil)

	assert.Equal(t, path+FileExtension, s.Path())
	_, err := os.Stat(path + FileExtension)
	require.NoError(t, err, "Open must create the snapshot file")
	assert.Empty(t, loadFile(t, path))

	n, err := s.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt")
	require.NoError(t, os.WriteFile(path+FileExtension, []byte("definitely not zlib"), 0o644))

	_, err := Open(path, nil)
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.RetCPersistence), "got %v", err)
	assert.ErrorIs(t, err, snapshot.ErrCorrupt)

	// the broken file is left alone
	b, err := os.ReadFile(path + FileExtension)
	require.NoError(t, err)
	assert.Equal(t, "definitely not zlib", string(b))
}

func TestOpenNullSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "null")
	compressed, err := snapshot.NewZlibCompressor().Compress([]byte("null"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path+FileExtension, compressed, 0o644))

	_, err = Open(path, nil)
	require.Error(t, err)
	assert.True(t, store.IsCode(err, store.RetCPersistence), "got %v", err)
	assert.ErrorIs(t, err, snapshot.ErrCorrupt)
}

func TestOpenDuplicatePrimaryKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup")
	table := snapshot.Table{
		"a": record.New(record.Entry{Name: record.IDField, Value: record.String("a")}, record.Entry{Name: "k", Value: record.String("x")}),
		"b": record.New(record.Entry{Name: record.IDField, Value: record.String("b")}, record.Entry{Name: "k", Value: record.String("x")}),
	}
	_, err := snapshot.NewEngine(nil, nil).Save(FilePath(path), table)
	require.NoError(t, err)

	_, err = Open(path, &Options{PrimaryKey: "k"})
	assert.True(t, store.IsCode(err, store.RetCPersistence), "got %v", err)

	// without an index the same file is fine
	s := openT(t, path, nil)
	n, err := s.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestBackgroundFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bg")
	s := openT(t, path, &Options{PrimaryKey: "sessionId", FlushTicks: 2, TickInterval: 5 * time.Millisecond})

	id, err := s.Create(record.F("sessionId", "abc123"), record.F("refId", "user1"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		table, err := snapshot.NewEngine(nil, nil).Load(s.Path())
		if err != nil {
			return false
		}
		r, ok := table[id]
		return ok && r.Has("refId")
	}, 2*time.Second, 5*time.Millisecond)

	info, err := s.Info()
	require.NoError(t, err)
	assert.False(t, info.Dirty)
	assert.GreaterOrEqual(t, info.Flushes, uint64(1))
	assert.False(t, info.LastFlush.IsZero())
	assert.Positive(t, info.SnapshotBytes)
}

func TestNoFlushWithoutChanges(t *testing.T) {
	s := openT(t, filepath.Join(t.TempDir(), "idle"), &Options{FlushTicks: 1, TickInterval: 2 * time.Millisecond})

	time.Sleep(50 * time.Millisecond)
	info, err := s.Info()
	require.NoError(t, err)
	assert.Zero(t, info.Flushes)

	// a set to the current value does not dirty the store
	id, err := s.Create(record.F("a", 1))
	require.NoError(t, err)
	require.NoError(t, s.Flush())
	ok, err := s.SetByID(id, "a", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	info, _ = s.Info()
	assert.False(t, info.Dirty)
}

func TestFlushFailureKeepsDirty(t *testing.T) {
	c := &flakyCompressor{ICompressor: snapshot.NewZlibCompressor()}
	set := metrics.NewSet()
	path := filepath.Join(t.TempDir(), "flaky")
	s := openT(t, path, &Options{
		FlushTicks:   1,
		TickInterval: 2 * time.Millisecond,
		Compressor:   c,
		Metrics:      set,
	})

	c.fail.Store(true)
	id, err := s.Create(record.F("a", 1))
	require.NoError(t, err)

	err = s.Flush()
	assert.True(t, store.IsCode(err, store.RetCPersistence), "got %v", err)
	assert.ErrorIs(t, err, errDiskFull)

	// the background loop keeps retrying and counting failures
	failures := set.GetOrCreateCounter(`xdb_flush_errors_total{store="flaky.xdb"}`)
	require.Eventually(t, func() bool {
		return failures.Get() >= 3
	}, 2*time.Second, 2*time.Millisecond)

	info, _ := s.Info()
	assert.True(t, info.Dirty)
	assert.Empty(t, loadFile(t, path))

	// once the disk recovers the change lands
	c.fail.Store(false)
	require.Eventually(t, func() bool {
		info, _ := s.Info()
		return !info.Dirty
	}, 2*time.Second, 2*time.Millisecond)
	assert.Contains(t, loadFile(t, path), id)
}

func TestStopReturnsFinalSaveError(t *testing.T) {
	c := &flakyCompressor{ICompressor: snapshot.NewZlibCompressor()}
	s, err := Open(filepath.Join(t.TempDir(), "final"), &Options{Compressor: c})
	require.NoError(t, err)

	c.fail.Store(true)
	err = s.Stop()
	assert.True(t, store.IsCode(err, store.RetCPersistence), "got %v", err)
	assert.Equal(t, err, s.Stop(), "repeated Stop must report the same result")

	err = s.Flush()
	assert.True(t, store.IsCode(err, store.RetCStopped), "got %v", err)
}

func TestStopSavesImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop")
	// the background loop would only save after an hour
	s, err := Open(path, &Options{TickInterval: time.Hour})
	require.NoError(t, err)

	id, err := s.Create(record.F("a", "b"))
	require.NoError(t, err)
	require.NoError(t, s.Stop())

	table := loadFile(t, path)
	require.Contains(t, table, id)
	v, _ := table[id].Get("a")
	assert.True(t, v.Equal(record.String("b")))
}

func TestAlternativeEncodings(t *testing.T) {
	codec, err := snapshot.CodecByName("json")
	require.NoError(t, err)
	for _, name := range []string{"zlib", "zstd", "lz4"} {
		t.Run(name, func(t *testing.T) {
			comp, err := snapshot.CompressorByName(name)
			require.NoError(t, err)
			path := filepath.Join(t.TempDir(), name)
			opts := &Options{PrimaryKey: "k", Codec: codec, Compressor: comp}

			s, err := Open(path, opts)
			require.NoError(t, err)
			_, err = s.Create(record.F("k", "x"), record.F("list", []any{1, "two", nil}))
			require.NoError(t, err)
			require.NoError(t, s.Stop())

			s = openT(t, path, opts)
			r, ok, err := s.GetByKey("x")
			require.NoError(t, err)
			require.True(t, ok)
			assert.True(t, r.Has("list"))

			info, _ := s.Info()
			assert.Equal(t, "json", info.Codec)
			assert.Equal(t, name, info.Compressor)
		})
	}
}

func TestMetrics(t *testing.T) {
	set := metrics.NewSet()
	s := openT(t, filepath.Join(t.TempDir(), "m"), &Options{PrimaryKey: "k", Metrics: set})

	_, err := s.Create(record.F("k", "x"))
	require.NoError(t, err)
	_, _, _ = s.GetByKey("x")
	_, _, _ = s.GetByKey("y")
	require.NoError(t, s.Flush())

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	out := buf.String()

	assert.Contains(t, out, `xdb_operations_total{store="m.xdb",op="create"} 1`)
	assert.Contains(t, out, `xdb_operations_total{store="m.xdb",op="get_by_key"} 2`)
	assert.Contains(t, out, `xdb_flushes_total{store="m.xdb"} 1`)
	assert.Contains(t, out, `xdb_records{store="m.xdb"} 1`)
}

func TestMetricsReopenInSameSet(t *testing.T) {
	set := metrics.NewSet()
	path := filepath.Join(t.TempDir(), "re")

	s, err := Open(path, &Options{Metrics: set})
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := s.Create(record.F("i", i))
		require.NoError(t, err)
	}
	require.NoError(t, s.Stop())

	s = openT(t, path, &Options{Metrics: set})
	_, err = s.Create(record.F("i", 2))
	require.NoError(t, err)

	var buf bytes.Buffer
	s.WritePrometheus(&buf)
	out := buf.String()

	// one gauge per name, backed by the reopened store
	assert.Equal(t, 1, strings.Count(out, `xdb_records{store="re.xdb"}`))
	assert.Contains(t, out, `xdb_records{store="re.xdb"} 3`)
}

func TestMetricsFreshSets(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 5; i++ {
		s := openT(t, filepath.Join(dir, "fresh"), &Options{Metrics: metrics.NewSet()})

		var buf bytes.Buffer
		s.WritePrometheus(&buf)
		assert.Contains(t, buf.String(), `xdb_records{store="fresh.xdb"} `, "set %d", i)
		assert.Contains(t, buf.String(), `xdb_snapshot_bytes{store="fresh.xdb"} `, "set %d", i)
		require.NoError(t, s.Stop())
	}
}

func TestInfo(t *testing.T) {
	s := openT(t, filepath.Join(t.TempDir(), "info"), &Options{PrimaryKey: "k"})

	_, err := s.Create(record.F("k", 1))
	require.NoError(t, err)

	info, err := s.Info()
	require.NoError(t, err)
	assert.Equal(t, "k", info.PrimaryKey)
	assert.Equal(t, 1, info.Records)
	assert.True(t, info.Dirty)
	assert.Equal(t, "go-json", info.Codec)
	assert.Equal(t, "zlib", info.Compressor)
}
