package lifecycle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("lifecycle")

// Stopper is anything that has to be stopped before the process exits.
// store.IObjectStore satisfies it.
type Stopper interface {
	Stop() error
}

// Manager keeps track of the open stores of an application so that they can
// all be stopped (and therefore flushed) at shutdown.
//
// Thread-safety: All methods are safe for concurrent use.
type Manager struct {
	stoppers *xsync.MapOf[string, Stopper]
	log      logger.ILogger
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		stoppers: xsync.NewMapOf[string, Stopper](),
		log:      Logger,
	}
}

// Register adds s under name. Registering a second stopper under a name
// already in use fails.
func (m *Manager) Register(name string, s Stopper) error {
	if s == nil {
		return fmt.Errorf("register %q: stopper is nil", name)
	}
	if _, loaded := m.stoppers.LoadOrStore(name, s); loaded {
		return fmt.Errorf("register %q: name already registered", name)
	}
	m.log.Debugf("registered %s", name)
	return nil
}

// Unregister removes name without stopping it and returns the removed stopper.
func (m *Manager) Unregister(name string) (Stopper, bool) {
	return m.stoppers.LoadAndDelete(name)
}

// Get returns the stopper registered under name.
func (m *Manager) Get(name string) (Stopper, bool) {
	return m.stoppers.Load(name)
}

// Names returns the sorted names of all registered stoppers.
func (m *Manager) Names() []string {
	names := make([]string, 0, m.stoppers.Size())
	m.stoppers.Range(func(name string, _ Stopper) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

// StopAll stops and unregisters every stopper in name order. A failing stop
// does not prevent the others; all errors are returned joined.
func (m *Manager) StopAll() error {
	var errs []error
	for _, name := range m.Names() {
		s, ok := m.stoppers.LoadAndDelete(name)
		if !ok {
			continue
		}
		if err := s.Stop(); err != nil {
			m.log.Errorf("stopping %s failed: %v", name, err)
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			continue
		}
		m.log.Infof("stopped %s", name)
	}
	return errors.Join(errs...)
}
