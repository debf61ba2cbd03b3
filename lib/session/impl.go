package session

import (
	"fmt"
	"time"

	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/ValentinKolb/xdb/lib/store"
	"github.com/ValentinKolb/xdb/lib/store/xstore"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("session")

// Options configures a Manager.
type Options struct {
	// Clock returns the current time (nil = time.Now).
	Clock func() time.Time
	// Logger (nil = package Logger).
	Logger logger.ILogger
}

// Manager stores sessions in an object store whose primary key is FieldSessionID.
//
// Thread-safety: All methods are as thread-safe as the underlying store.
type Manager struct {
	store store.IObjectStore
	now   func() time.Time
	log   logger.ILogger
}

// compile time check
var _ ISessionManager = (*Manager)(nil)

// Open opens (or creates) the session store at path and returns a manager for
// it. The primary key of storeOpts is always set to FieldSessionID.
func Open(path string, storeOpts *xstore.Options, opts *Options) (*Manager, error) {
	o := xstore.Options{}
	if storeOpts != nil {
		o = *storeOpts
	}
	o.PrimaryKey = FieldSessionID

	s, err := xstore.Open(path, &o)
	if err != nil {
		return nil, err
	}
	m, err := NewManager(s, opts)
	if err != nil {
		_ = s.Stop()
		return nil, err
	}
	return m, nil
}

// NewManager creates a manager on top of s and removes all sessions that
// expired while the store was closed.
func NewManager(s store.IObjectStore, opts *Options) (*Manager, error) {
	m := &Manager{
		store: s,
		now:   time.Now,
		log:   Logger,
	}
	if opts != nil {
		if opts.Clock != nil {
			m.now = opts.Clock
		}
		if opts.Logger != nil {
			m.log = opts.Logger
		}
	}

	n, err := m.DeleteExpired()
	if err != nil {
		return nil, fmt.Errorf("remove expired sessions: %w", err)
	}
	if n > 0 {
		m.log.Infof("removed %d expired sessions", n)
	}
	return m, nil
}

// Store returns the underlying store.
func (m *Manager) Store() store.IObjectStore {
	return m.store
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// expired reports whether r carries an expiry in the past.
func (m *Manager) expired(r *record.Record) bool {
	v, ok := r.Get(FieldExpire)
	if !ok {
		return false
	}
	at, ok := v.AsNumber()
	return ok && unixSeconds(m.now()) > at
}

func stringField(r *record.Record, name string) string {
	v, _ := r.Get(name)
	s, _ := v.AsString()
	return s
}

// removeMatching removes every session matching pred and returns how many
// were removed.
func (m *Manager) removeMatching(pred store.Predicate) (int, error) {
	sessions, err := m.store.Filter(pred)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range sessions {
		ok, err := m.store.RemoveByKey(stringField(r, FieldSessionID))
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see ISessionManager)
// --------------------------------------------------------------------------

func (m *Manager) Create(refID string, ttl time.Duration) (string, error) {
	if ttl < 0 {
		return "", fmt.Errorf("negative session ttl %s", ttl)
	}
	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	var expire any
	if ttl > 0 {
		expire = unixSeconds(m.now().Add(ttl))
	}

	if _, err := m.store.Create(
		record.F(FieldSessionID, token),
		record.F(FieldRefID, refID),
		record.F(FieldExpire, expire),
	); err != nil {
		return "", err
	}
	return token, nil
}

func (m *Manager) Get(token string) (string, bool, error) {
	r, ok, err := m.store.GetByKey(token)
	if err != nil || !ok {
		return "", false, err
	}
	if m.expired(r) {
		if _, err := m.store.RemoveByKey(token); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	return stringField(r, FieldRefID), true, nil
}

func (m *Manager) Delete(token string) (bool, error) {
	return m.store.RemoveByKey(token)
}

func (m *Manager) DeleteAll(refID string) (int, error) {
	return m.removeMatching(func(r *record.Record) bool {
		return stringField(r, FieldRefID) == refID
	})
}

func (m *Manager) DeleteAllExcept(refID string, keep ...string) (int, error) {
	keepSet := make(map[string]struct{}, len(keep))
	for _, token := range keep {
		keepSet[token] = struct{}{}
	}
	return m.removeMatching(func(r *record.Record) bool {
		if stringField(r, FieldRefID) != refID {
			return false
		}
		_, kept := keepSet[stringField(r, FieldSessionID)]
		return !kept
	})
}

func (m *Manager) DeleteExpired() (int, error) {
	return m.removeMatching(m.expired)
}

func (m *Manager) Close() error {
	return m.store.Stop()
}
