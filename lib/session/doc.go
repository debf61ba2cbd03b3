// Package session implements session management on top of an object store.
//
// Each session is one record:
//   - sessionId: random token, the primary key of the store
//   - refId: the referenced object, e.g. a user id
//   - expire: unix timestamp (seconds) when the session expires, or null
//
// Tokens are the hex encoded SHA-256 hash of 64 random bytes from crypto/rand.
//
// Expiry is not enforced by the store. Expired sessions are removed lazily by
// Get, in bulk by DeleteExpired, and once whenever a Manager is created.
//
// Usage Example:
//
//	sessions, err := session.Open("data/sessions", nil, nil)
//	if err != nil {
//		return err
//	}
//	defer sessions.Close()
//
//	token, err := sessions.Create("user1", 24*time.Hour)
//	userID, ok, err := sessions.Get(token)
package session
