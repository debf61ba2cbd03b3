// Package lifecycle provides an explicit registry of open stores.
//
// Stores flush in the background and only guarantee that the latest changes
// reach disk when they are stopped. Instead of a process wide list of every
// store ever opened, the application owns a Manager, registers the stores it
// opens and calls StopAll once during shutdown.
//
// Usage Example:
//
//	m := lifecycle.NewManager()
//	sessions, _ := xstore.Open("data/sessions", &xstore.Options{PrimaryKey: "sessionId"})
//	_ = m.Register("sessions", sessions)
//	defer m.StopAll()
package lifecycle
