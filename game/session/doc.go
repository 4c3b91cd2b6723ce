// Package session stores race sessions.
//
// Manager is a thread-safe registry of service.Session values keyed by
// 4-character hex ids (case-insensitive). It implements
// service.SessionManager and handles expiry of idle sessions.
//
// Each Session guards its engine with its own mutex, so actions on one race
// never wait on another.
//
// Persistence:
//
// FilePersistence writes one JSON file per session holding the map id, laps,
// shuffle seed, players and the log of accepted actions. Loading rebuilds the
// engine by replaying that log; the engine is deterministic for a given seed,
// so the replayed race is identical to the one that was saved.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions", configManager)
//	manager := session.NewManagerWithPersistence(persistence)
//	if err := manager.LoadPersistedSessions(); err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err := manager.Create("", "usa", mapConfig, 0)
package session
