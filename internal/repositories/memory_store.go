package repositories

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"codejournal/internal/models"
)

// MemoryStore is an in-memory implementation of UserStore. It mirrors the
// FileStore's save semantics (metadata stamping, opportunistic index row
// refresh) and is used by tests and local experiments.
type MemoryStore struct {
	mu     sync.RWMutex
	master *models.MasterIndex
	users  map[int64]*models.UserRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]*models.UserRecord),
	}
}

// Init creates the master index if it does not exist yet.
func (s *MemoryStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.master == nil {
		s.master = models.NewMasterIndex()
	}
	return nil
}

// LoadMaster returns a deep copy of the index so callers can mutate freely.
func (s *MemoryStore) LoadMaster() (*models.MasterIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.master == nil {
		return nil, fmt.Errorf("master index: %w", ErrNotFound)
	}
	return copyJSON(s.master)
}

// SaveMaster stamps lastUpdated and replaces the stored index.
func (s *MemoryStore) SaveMaster(master *models.MasterIndex) error {
	master.Metadata.LastUpdated = time.Now()
	cp, err := copyJSON(master)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.master = cp
	s.mu.Unlock()
	return nil
}

// LoadUser returns a deep copy of the record for id.
func (s *MemoryStore) LoadUser(id int64) (*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return copyJSON(user)
}

// SaveUser stores the record and refreshes its index row when present.
func (s *MemoryStore) SaveUser(id int64, user *models.UserRecord) error {
	user.Metadata.LastActivity = time.Now()
	user.Metadata.Version = models.SchemaVersion

	cp, err := copyJSON(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = cp

	if s.master == nil {
		return nil
	}
	idx := s.master.FindUser(id)
	if idx == -1 {
		return nil
	}
	s.master.Users[idx] = models.SummaryOf(user)

	total := 0
	for _, row := range s.master.Users {
		total += row.XP
	}
	s.master.Statistics.TotalXPAwarded = total
	s.master.Metadata.LastUpdated = time.Now()
	return nil
}

// ListUserIDs enumerates the stored record ids.
func (s *MemoryStore) ListUserIDs() ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	return ids, nil
}

// copyJSON deep-copies a value through its JSON representation, matching the
// shapes the FileStore round-trips through disk.
func copyJSON[T any](v *T) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to copy value: %w", err)
	}
	cp := new(T)
	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("failed to copy value: %w", err)
	}
	return cp, nil
}
