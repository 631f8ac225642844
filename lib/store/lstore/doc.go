// Package lstore implements a local, in-memory store based on the store.IStore
// interface. Data is stored entirely in memory and is not persisted between process
// restarts.
//
// Implementation Details:
//
//   - Two critical sections: the directory (identity -> bundle) and the registry
//     (group id -> record) are guarded by independent sync.RWMutex values. Reads
//     (GetBundle, ListIdentities, GetGroup, FetchMessages) share the lock, every
//     mutation takes it exclusively. No operation ever holds both locks, so there
//     is no lock ordering to get wrong.
//
//   - Copy semantics: bundles and payloads are copied on the way in and on the way
//     out. Callers never hold a reference into the store.
//
//   - Ordering: the log of a group grows in the order in which Relay calls are
//     granted the registry's write lock.
//
// Thread Safety:
//
//	All operations are safe for concurrent use. sync.RWMutex blocks new readers
//	while a writer is waiting, so a steady stream of readers cannot starve a writer.
//
// Usage Example:
//
//	s := lstore.NewLocalStore()
//	_ = s.PutBundle("alice", bundle)
//	_, _ = s.CreateGroup("g1", "alice")
//	_, _ = s.JoinGroup("g1", "bob")
//	err := s.Relay("g1", "bob", payload, store.KindApplication)
package lstore
