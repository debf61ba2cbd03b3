package session

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/ValentinKolb/xdb/lib/store"
	"github.com/ValentinKolb/xdb/lib/store/xstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newManager(t *testing.T, path string, clock *fakeClock) *Manager {
	t.Helper()
	m, err := Open(path, &xstore.Options{TickInterval: 10 * time.Millisecond}, &Options{Clock: clock.Now})
	require.NoError(t, err)
	return m
}

func TestCreateAndGet(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newManager(t, filepath.Join(t.TempDir(), "sessions"), clock)
	defer m.Close()

	token, err := m.Create("user1", time.Hour)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := m.Create("user1", 0)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	refID, ok, err := m.Get(token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user1", refID)

	_, ok, err = m.Get("unknown")
	require.NoError(t, err)
	assert.False(t, ok)

	// stored shape
	r, ok, err := m.Store().GetByKey(token)
	require.NoError(t, err)
	require.True(t, ok)
	exp, _ := r.Get(FieldExpire)
	assert.True(t, exp.Equal(record.Number(1_700_003_600)), "expire = %s", exp)

	r, _, _ = m.Store().GetByKey(other)
	exp, _ = r.Get(FieldExpire)
	assert.True(t, exp.IsNull(), "session without ttl must store a null expiry")

	_, err = m.Create("user1", -time.Second)
	assert.Error(t, err)
}

func TestGetRemovesExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newManager(t, filepath.Join(t.TempDir(), "sessions"), clock)
	defer m.Close()

	short, err := m.Create("user1", time.Minute)
	require.NoError(t, err)
	forever, err := m.Create("user1", 0)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, ok, err := m.Get(short)
	require.NoError(t, err)
	assert.False(t, ok)
	_, found, _ := m.Store().GetByKey(short)
	assert.False(t, found, "expired session must be removed on access")

	refID, ok, err := m.Get(forever)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user1", refID)
}

func TestDeleteVariants(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newManager(t, filepath.Join(t.TempDir(), "sessions"), clock)
	defer m.Close()

	a1, _ := m.Create("alice", 0)
	a2, _ := m.Create("alice", 0)
	a3, _ := m.Create("alice", 0)
	b1, _ := m.Create("bob", 0)
	b2, _ := m.Create("bob", 0)

	ok, err := m.Delete(b2)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = m.Delete(b2)
	assert.False(t, ok)

	n, err := m.DeleteAllExcept("alice", a2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	for token, want := range map[string]bool{a1: false, a2: true, a3: false, b1: true} {
		_, ok, _ := m.Get(token)
		assert.Equal(t, want, ok, "token %s", token)
	}

	n, err = m.DeleteAll("alice")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = m.DeleteAll("nobody")
	require.NoError(t, err)
	assert.Zero(t, n)

	count, _ := m.Store().Len()
	assert.Equal(t, 1, count)
}

func TestDeleteExpired(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	m := newManager(t, filepath.Join(t.TempDir(), "sessions"), clock)
	defer m.Close()

	for i := 1; i <= 4; i++ {
		_, err := m.Create("user", time.Duration(i)*time.Minute)
		require.NoError(t, err)
	}
	keep, _ := m.Create("user", 0)

	clock.Advance(150 * time.Second)
	n, err := m.DeleteExpired()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, _ := m.Store().Len()
	assert.Equal(t, 3, count)
	_, ok, _ := m.Get(keep)
	assert.True(t, ok)
}

func TestOpenRemovesExpired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions")
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}

	m := newManager(t, path, clock)
	expiring, err := m.Create("user1", time.Minute)
	require.NoError(t, err)
	persistent, err := m.Create("user1", 0)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	clock.Advance(time.Hour)
	m = newManager(t, path, clock)
	defer m.Close()

	_, found, _ := m.Store().GetByKey(expiring)
	assert.False(t, found, "sessions expired while closed must be removed on open")
	_, found, _ = m.Store().GetByKey(persistent)
	assert.True(t, found)
}

func TestOpenForcesPrimaryKey(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m, err := Open(filepath.Join(t.TempDir(), "s"), &xstore.Options{PrimaryKey: "other"}, &Options{Clock: clock.Now})
	require.NoError(t, err)
	defer m.Close()

	info, err := m.Store().Info()
	require.NoError(t, err)
	assert.Equal(t, FieldSessionID, info.PrimaryKey)
}

func TestClosedManager(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	m := newManager(t, filepath.Join(t.TempDir(), "sessions"), clock)
	require.NoError(t, m.Close())

	_, err := m.Create("user1", 0)
	assert.True(t, store.IsCode(err, store.RetCStopped), "got %v", err)
	_, _, err = m.Get("x")
	assert.True(t, store.IsCode(err, store.RetCStopped), "got %v", err)
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := generateToken()
		require.NoError(t, err)
		require.Len(t, token, 64)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}
