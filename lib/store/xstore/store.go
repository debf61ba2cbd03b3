package xstore

import (
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/ValentinKolb/xdb/lib/snapshot"
	"github.com/ValentinKolb/xdb/lib/store"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

// Store is a file-backed object store with an optional primary-key index.
// It implements store.IObjectStore.
//
// Thread-safety: Every exported method is safe for concurrent use. All of them
// (and the background flush) are serialized by one mutex, so operations are
// linearizable and the table and index are never observed half updated.
type Store struct {
	mu sync.Mutex // the single lock guarding everything below

	path       string
	primaryKey string
	table      snapshot.Table    // _id -> record
	index      map[string]string // record.Value.Key() of the primary key -> _id
	dirty      bool
	stopped    bool

	flushes   uint64
	lastFlush time.Time

	engine  *snapshot.Engine
	opts    Options
	log     logger.ILogger
	metrics *storeMetrics

	// background flush
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// compile time check
var _ store.IObjectStore = (*Store)(nil)

// --------------------------------------------------------------------------
// Initialization
// --------------------------------------------------------------------------

// Open opens the store at path (FileExtension is appended if missing) with the
// given options (optional). If no file exists an empty one is created, including
// missing parent directories. A file that exists but cannot be decompressed or
// parsed, or that holds two records with the same primary-key value, aborts
// Open with a RetCPersistence error. There is no fallback to an empty store.
//
// On success the background flush goroutine is running; call Stop to end it.
func Open(path string, opts *Options) (*Store, error) {
	o := opts.withDefaults()
	file := FilePath(path)
	engine := snapshot.NewEngine(o.Codec, o.Compressor)

	exists, err := snapshot.Exists(file)
	if err != nil {
		return nil, store.WrapError(store.RetCPersistence, fmt.Sprintf("stat %s", file), err)
	}
	if !exists {
		if _, err := engine.Save(file, snapshot.Table{}); err != nil {
			return nil, store.WrapError(store.RetCPersistence, fmt.Sprintf("create %s", file), err)
		}
		o.Logger.Infof("created empty store file %s", file)
	}

	table, err := engine.Load(file)
	if err != nil {
		return nil, store.WrapError(store.RetCPersistence, fmt.Sprintf("open %s", file), err)
	}

	index, err := buildIndex(table, o.PrimaryKey)
	if err != nil {
		return nil, store.WrapError(store.RetCPersistence, fmt.Sprintf("open %s", file), err)
	}

	s := &Store{
		path:       file,
		primaryKey: o.PrimaryKey,
		table:      table,
		index:      index,
		engine:     engine,
		opts:       o,
		log:        o.Logger,
		metrics:    newStoreMetrics(o.Metrics, file),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	s.metrics.records.Store(int64(len(table)))
	if fi, err := os.Stat(file); err == nil {
		s.metrics.snapshotBytes.Store(fi.Size())
	}

	go s.flushLoop()

	s.log.Infof("opened %s (%d records, primary key %q)", file, len(table), o.PrimaryKey)
	return s, nil
}

// buildIndex creates the primary-key index for a freshly loaded table.
func buildIndex(table snapshot.Table, primaryKey string) (map[string]string, error) {
	index := make(map[string]string)
	if primaryKey == "" {
		return index, nil
	}
	for id, r := range table {
		v, ok := r.Get(primaryKey)
		if !ok || v.IsNull() {
			continue
		}
		if other, taken := index[v.Key()]; taken {
			return nil, fmt.Errorf("duplicate primary key %s for records %q and %q", v, other, id)
		}
		index[v.Key()] = id
	}
	return index, nil
}

// newID generates an identifier not yet used in the table.
//
// Thread-safety: caller must hold s.mu.
func (s *Store) newID() string {
	for {
		u := uuid.New()
		id := hex.EncodeToString(u[:])
		if _, taken := s.table[id]; !taken {
			return id
		}
	}
}

// Path returns the snapshot file of the store.
func (s *Store) Path() string {
	return s.path
}

// PrimaryKey returns the indexed field name ("" if none).
func (s *Store) PrimaryKey() string {
	return s.primaryKey
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func errStopped() error {
	return store.NewError(store.RetCStopped, "store is stopped")
}

func toValue(v any) (record.Value, error) {
	val, err := record.ValueOf(v)
	if err != nil {
		return record.Value{}, store.WrapError(store.RetCValidation, "value is not representable", err)
	}
	return val, nil
}

// lookupKey resolves a primary-key value to an identifier.
//
// Thread-safety: caller must hold s.mu.
func (s *Store) lookupKey(key record.Value) (string, bool) {
	if key.IsNull() {
		return "", false
	}
	id, ok := s.index[key.Key()]
	return id, ok
}

func (s *Store) requirePrimaryKey() error {
	if s.primaryKey == "" {
		return store.NewError(store.RetCInvalidOperation, "store has no primary key")
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IObjectStore)
// --------------------------------------------------------------------------

func (s *Store) Create(fields ...record.Field) (string, error) {
	s.metrics.op(opCreate)

	for _, f := range fields {
		if f.Name == record.IDField {
			return "", store.NewError(store.RetCValidation, fmt.Sprintf("field %s is assigned by the store", record.IDField))
		}
	}
	r, err := record.FromFields(fields...)
	if err != nil {
		return "", store.WrapError(store.RetCValidation, "invalid record", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return "", errStopped()
	}

	// check the primary key before anything is mutated
	var (
		key    string
		hasKey bool
	)
	if s.primaryKey != "" {
		if v, ok := r.Get(s.primaryKey); ok && !v.IsNull() {
			if _, taken := s.index[v.Key()]; taken {
				return "", store.NewError(store.RetCDuplicateKey, fmt.Sprintf("primary key %s=%s already exists", s.primaryKey, v))
			}
			key, hasKey = v.Key(), true
		}
	}

	id := s.newID()
	stored := record.New(record.Entry{Name: record.IDField, Value: record.String(id)})
	r.Range(func(name string, v record.Value) bool {
		stored.Set(name, v)
		return true
	})

	s.table[id] = stored
	if hasKey {
		s.index[key] = id
	}
	s.dirty = true
	s.metrics.records.Store(int64(len(s.table)))

	return id, nil
}

func (s *Store) GetByID(id string) (*record.Record, bool, error) {
	s.metrics.op(opGetByID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, false, errStopped()
	}
	r, ok := s.table[id]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

func (s *Store) GetByKey(key any) (*record.Record, bool, error) {
	s.metrics.op(opGetByKey)

	if err := s.requirePrimaryKey(); err != nil {
		return nil, false, err
	}
	kv, err := toValue(key)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, false, errStopped()
	}
	id, ok := s.lookupKey(kv)
	if !ok {
		return nil, false, nil
	}
	r, ok := s.table[id]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

func (s *Store) GetByProperty(name string, value any) (*record.Record, bool, error) {
	s.metrics.op(opGetByProperty)

	want, err := toValue(value)
	if err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, false, errStopped()
	}
	for _, r := range s.table {
		if v, ok := r.Get(name); ok && v.Equal(want) {
			return r.Clone(), true, nil
		}
	}
	return nil, false, nil
}

// Filter returns copies of all records matching pred. pred runs while the
// store is locked and must not call back into the store.
func (s *Store) Filter(pred store.Predicate) ([]*record.Record, error) {
	s.metrics.op(opFilter)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil, errStopped()
	}
	out := make([]*record.Record, 0)
	for _, r := range s.table {
		c := r.Clone()
		if pred == nil || pred(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) SetByID(id string, field string, value any) (bool, error) {
	s.metrics.op(opSetByID)

	v, err := s.checkSet(field, value)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false, errStopped()
	}
	return s.setLocked(id, field, v)
}

func (s *Store) SetByKey(key any, field string, value any) (bool, error) {
	s.metrics.op(opSetByKey)

	if err := s.requirePrimaryKey(); err != nil {
		return false, err
	}
	kv, err := toValue(key)
	if err != nil {
		return false, err
	}
	v, err := s.checkSet(field, value)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false, errStopped()
	}
	id, ok := s.lookupKey(kv)
	if !ok {
		return false, nil
	}
	return s.setLocked(id, field, v)
}

// checkSet validates the arguments of SetByID / SetByKey.
func (s *Store) checkSet(field string, value any) (record.Value, error) {
	if field == record.IDField {
		return record.Value{}, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("field %s can't be modified", record.IDField))
	}
	return toValue(value)
}

// setLocked updates one field of the record id. If the field is the primary
// key, the old index entry is replaced by the new one in the same step.
//
// Thread-safety: caller must hold s.mu.
func (s *Store) setLocked(id string, field string, v record.Value) (bool, error) {
	r, ok := s.table[id]
	if !ok {
		return false, nil
	}

	// nothing to do
	if cur, ok := r.Get(field); ok && cur.Equal(v) {
		return true, nil
	}

	if s.primaryKey != "" && field == s.primaryKey {
		if !v.IsNull() {
			if owner, taken := s.index[v.Key()]; taken && owner != id {
				return false, store.NewError(store.RetCDuplicateKey, fmt.Sprintf("primary key %s=%s already exists", s.primaryKey, v))
			}
		}
		if old, ok := r.Get(field); ok && !old.IsNull() {
			delete(s.index, old.Key())
		}
		if !v.IsNull() {
			s.index[v.Key()] = id
		}
	}

	r.Set(field, v)
	s.dirty = true
	return true, nil
}

func (s *Store) RemoveByID(id string) (bool, error) {
	s.metrics.op(opRemoveByID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false, errStopped()
	}
	return s.removeLocked(id), nil
}

func (s *Store) RemoveByKey(key any) (bool, error) {
	s.metrics.op(opRemoveByKey)

	if err := s.requirePrimaryKey(); err != nil {
		return false, err
	}
	kv, err := toValue(key)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false, errStopped()
	}
	id, ok := s.lookupKey(kv)
	if !ok {
		return false, nil
	}
	return s.removeLocked(id), nil
}

// removeLocked deletes the record id and its index entry.
//
// Thread-safety: caller must hold s.mu.
func (s *Store) removeLocked(id string) bool {
	r, ok := s.table[id]
	if !ok {
		return false
	}
	delete(s.table, id)
	if s.primaryKey != "" {
		if v, ok := r.Get(s.primaryKey); ok && !v.IsNull() {
			delete(s.index, v.Key())
		}
	}
	s.dirty = true
	s.metrics.records.Store(int64(len(s.table)))
	return true
}

func (s *Store) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, errStopped()
	}
	return len(s.table), nil
}

func (s *Store) Info() (store.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return store.Info{
		Path:          s.path,
		PrimaryKey:    s.primaryKey,
		Records:       len(s.table),
		Dirty:         s.dirty,
		Flushes:       s.flushes,
		LastFlush:     s.lastFlush,
		SnapshotBytes: int(s.metrics.snapshotBytes.Load()),
		Codec:         s.engine.Codec.Name(),
		Compressor:    s.engine.Compressor.Name(),
	}, nil
}
