package registry

import (
	"fmt"
	"sort"

	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/ValentinKolb/xdb/lib/store"
	"github.com/ValentinKolb/xdb/lib/store/xstore"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("registry")

// Registry keeps a list of servers in an object store without primary key.
// Servers are addressed by their store assigned id.
//
// Thread-safety: All methods are as thread-safe as the underlying store.
type Registry struct {
	store store.IObjectStore
	log   logger.ILogger
}

// Open opens (or creates) the registry store at path. Any primary key in
// storeOpts is ignored.
func Open(path string, storeOpts *xstore.Options) (*Registry, error) {
	o := xstore.Options{}
	if storeOpts != nil {
		o = *storeOpts
	}
	o.PrimaryKey = ""

	s, err := xstore.Open(path, &o)
	if err != nil {
		return nil, err
	}
	return New(s), nil
}

// New creates a registry on top of s.
func New(s store.IObjectStore) *Registry {
	return &Registry{store: s, log: Logger}
}

// Store returns the underlying store.
func (r *Registry) Store() store.IObjectStore {
	return r.store
}

// Add validates and stores srv and returns its id. The store is flushed
// right away so a new server survives a crash.
func (r *Registry) Add(srv Server) (string, error) {
	if err := srv.Validate(); err != nil {
		return "", store.WrapError(store.RetCValidation, "invalid server", err)
	}
	id, err := r.store.Create(srv.fields()...)
	if err != nil {
		return "", err
	}
	if err := r.store.Flush(); err != nil {
		// the server is added, the background flush will retry
		r.log.Warningf("flush after adding server %s failed: %v", id, err)
	}
	r.log.Infof("added server %s (%s:%d)", id, srv.IP, srv.Port)
	return id, nil
}

// Get returns the server with the given id.
func (r *Registry) Get(id string) (Server, bool, error) {
	rec, ok, err := r.store.GetByID(id)
	if err != nil || !ok {
		return Server{}, false, err
	}
	return fromRecord(rec), true, nil
}

// List returns all servers sorted by label and id.
func (r *Registry) List() ([]Server, error) {
	return r.find(nil)
}

// FindByLabel returns the first server with the given label.
func (r *Registry) FindByLabel(label string) (Server, bool, error) {
	rec, ok, err := r.store.GetByProperty(FieldLabel, label)
	if err != nil || !ok {
		return Server{}, false, err
	}
	return fromRecord(rec), true, nil
}

// FindByAddress returns all servers listening on ip:port.
func (r *Registry) FindByAddress(ip string, port int) ([]Server, error) {
	wantIP, wantPort := record.String(ip), record.Number(float64(port))
	return r.find(func(rec *record.Record) bool {
		v, _ := rec.Get(FieldIP)
		p, _ := rec.Get(FieldPort)
		return v.Equal(wantIP) && p.Equal(wantPort)
	})
}

// Update sets one field of the server id. The id itself can't be changed.
func (r *Registry) Update(id string, field string, value any) (bool, error) {
	if err := validateField(field, value); err != nil {
		return false, store.WrapError(store.RetCValidation, "invalid server", err)
	}
	return r.store.SetByID(id, field, value)
}

// Remove deletes the server id.
func (r *Registry) Remove(id string) (bool, error) {
	return r.store.RemoveByID(id)
}

// Close stops the underlying store.
func (r *Registry) Close() error {
	return r.store.Stop()
}

func (r *Registry) find(pred store.Predicate) ([]Server, error) {
	recs, err := r.store.Filter(pred)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	servers := make([]Server, 0, len(recs))
	for _, rec := range recs {
		servers = append(servers, fromRecord(rec))
	}
	sort.Slice(servers, func(i, j int) bool {
		if servers[i].Label != servers[j].Label {
			return servers[i].Label < servers[j].Label
		}
		return servers[i].ID < servers[j].ID
	})
	return servers, nil
}
