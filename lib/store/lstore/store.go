package lstore

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ValentinKolb/mlsrelay/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("store")

// directory is the identity -> bundle map with its own lock
type directory struct {
	mu      sync.RWMutex
	bundles map[string][]byte
}

// registry is the group id -> record map with its own lock.
// Records are only touched while mu is held, readers share it, writers are exclusive.
type registry struct {
	mu     sync.RWMutex
	groups map[string]*store.GroupRecord
}

type storeImpl struct {
	directory directory
	registry  registry
}

// NewLocalStore creates a new local store instance.
// All state lives in process memory and is lost on restart.
func NewLocalStore() store.IStore {
	return &storeImpl{
		directory: directory{bundles: make(map[string][]byte)},
		registry:  registry{groups: make(map[string]*store.GroupRecord)},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) PutBundle(clientID string, bundle []byte) error {
	stored := slices.Clone(bundle)
	if stored == nil {
		stored = []byte{}
	}

	s.directory.mu.Lock()
	s.directory.bundles[clientID] = stored
	s.directory.mu.Unlock()

	Logger.Debugf("stored bundle for client %s (%d bytes)", clientID, len(stored))
	return nil
}

func (s *storeImpl) GetBundle(clientID string) ([]byte, bool, error) {
	s.directory.mu.RLock()
	defer s.directory.mu.RUnlock()

	bundle, ok := s.directory.bundles[clientID]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(bundle), true, nil
}

func (s *storeImpl) ListIdentities() ([]string, error) {
	s.directory.mu.RLock()
	defer s.directory.mu.RUnlock()

	ids := make([]string, 0, len(s.directory.bundles))
	for id := range s.directory.bundles {
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *storeImpl) CreateGroup(groupID, creatorID string) (store.GroupRecord, error) {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	if _, ok := s.registry.groups[groupID]; ok {
		return store.GroupRecord{}, store.NewError(store.RetCGroupExists, fmt.Sprintf("group already exists: %s", groupID))
	}

	group := store.NewGroupRecord(groupID, creatorID)
	s.registry.groups[groupID] = group

	Logger.Infof("created group %s by %s", groupID, creatorID)
	return group.Snapshot(), nil
}

func (s *storeImpl) JoinGroup(groupID, clientID string) (store.GroupRecord, error) {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	group, ok := s.registry.groups[groupID]
	if !ok {
		return store.GroupRecord{}, notFound(groupID)
	}

	if group.AddMember(clientID) {
		Logger.Infof("client %s joined group %s", clientID, groupID)
	}
	return group.Snapshot(), nil
}

func (s *storeImpl) Relay(groupID, senderID string, payload []byte, kind store.MessageKind) error {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()

	group, ok := s.registry.groups[groupID]
	if !ok {
		return notFound(groupID)
	}

	if err := group.Append(senderID, payload, kind); err != nil {
		return err
	}

	Logger.Debugf("relayed %s message from %s to group %s", kind, senderID, groupID)
	return nil
}

func (s *storeImpl) GetGroup(groupID string) (store.GroupRecord, error) {
	s.registry.mu.RLock()
	defer s.registry.mu.RUnlock()

	group, ok := s.registry.groups[groupID]
	if !ok {
		return store.GroupRecord{}, notFound(groupID)
	}
	return group.Snapshot(), nil
}

func (s *storeImpl) FetchMessages(groupID, clientID string, offset, limit uint64) ([]store.LogEntry, uint64, error) {
	s.registry.mu.RLock()
	defer s.registry.mu.RUnlock()

	group, ok := s.registry.groups[groupID]
	if !ok {
		return nil, 0, notFound(groupID)
	}
	if !group.IsMember(clientID) {
		return nil, 0, store.NewError(store.RetCSenderNotMember, fmt.Sprintf("client %s is not a member of group %s", clientID, groupID))
	}
	return group.Entries(offset, limit), uint64(len(group.Log)), nil
}

func (s *storeImpl) Stats() (store.Stats, error) {
	var stats store.Stats

	s.directory.mu.RLock()
	stats.Bundles = len(s.directory.bundles)
	s.directory.mu.RUnlock()

	s.registry.mu.RLock()
	stats.Groups = len(s.registry.groups)
	for _, g := range s.registry.groups {
		stats.LogEntries += len(g.Log)
	}
	s.registry.mu.RUnlock()

	return stats, nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func notFound(groupID string) *store.Error {
	return store.NewError(store.RetCGroupNotFound, fmt.Sprintf("group not found: %s", groupID))
}
