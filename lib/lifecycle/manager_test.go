package lifecycle

import (
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/ValentinKolb/xdb/lib/snapshot"
	"github.com/ValentinKolb/xdb/lib/store/xstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStopper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeStopper) Stop() error {
	f.calls.Add(1)
	return f.err
}

func TestRegisterAndNames(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Register("b", &fakeStopper{}))
	require.NoError(t, m.Register("a", &fakeStopper{}))

	assert.Error(t, m.Register("a", &fakeStopper{}), "duplicate name")
	assert.Error(t, m.Register("c", nil), "nil stopper")
	assert.Equal(t, []string{"a", "b"}, m.Names())

	s, ok := m.Unregister("a")
	assert.True(t, ok)
	assert.NotNil(t, s)
	_, ok = m.Unregister("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"b"}, m.Names())
}

func TestStopAllJoinsErrors(t *testing.T) {
	m := NewManager()
	ok1, ok2 := &fakeStopper{}, &fakeStopper{}
	bad := &fakeStopper{err: errors.New("disk full")}

	require.NoError(t, m.Register("ok1", ok1))
	require.NoError(t, m.Register("bad", bad))
	require.NoError(t, m.Register("ok2", ok2))

	err := m.StopAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, bad.err)
	assert.Contains(t, err.Error(), "stop bad")

	for _, s := range []*fakeStopper{ok1, ok2, bad} {
		assert.EqualValues(t, 1, s.calls.Load())
	}
	assert.Empty(t, m.Names())

	// nothing left to stop
	assert.NoError(t, m.StopAll())
}

func TestConcurrentRegister(t *testing.T) {
	m := NewManager()
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Register("same", &fakeStopper{}) == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, accepted.Load())
}

func TestStopAllFlushesStores(t *testing.T) {
	dir := t.TempDir()
	m := NewManager()

	ids := make(map[string]string)
	for _, name := range []string{"sessions", "servers"} {
		s, err := xstore.Open(filepath.Join(dir, name), nil)
		require.NoError(t, err)
		require.NoError(t, m.Register(name, s))

		id, err := s.Create(record.F("name", name))
		require.NoError(t, err)
		ids[name] = id
	}

	require.NoError(t, m.StopAll())

	for name, id := range ids {
		table, err := snapshot.NewEngine(nil, nil).Load(xstore.FilePath(filepath.Join(dir, name)))
		require.NoError(t, err)
		assert.Contains(t, table, id, "store %s was not flushed", name)
	}
}
