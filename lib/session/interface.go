package session

import "time"

// Field names of a session record.
const (
	FieldSessionID = "sessionId" // the primary key
	FieldRefID     = "refId"
	FieldExpire    = "expire" // unix seconds (float) or null
)

// ISessionManager defines the interface for a session manager.
type ISessionManager interface {
	// Create creates a session for refID and returns its token. The session expires
	// ttl from now; a ttl of zero creates a session that never expires.
	Create(refID string, ttl time.Duration) (token string, err error)

	// Get returns the refID of the session. Expired sessions are removed and
	// reported as not found.
	Get(token string) (refID string, ok bool, err error)

	// Delete removes the session. It reports whether the session existed.
	Delete(token string) (ok bool, err error)

	// DeleteAll removes all sessions of refID and returns how many were removed.
	DeleteAll(refID string) (n int, err error)

	// DeleteAllExcept removes all sessions of refID except the given tokens and
	// returns how many were removed.
	DeleteAllExcept(refID string, keep ...string) (n int, err error)

	// DeleteExpired removes every expired session and returns how many were removed.
	DeleteExpired() (n int, err error)

	// Close stops the underlying store.
	Close() error
}
