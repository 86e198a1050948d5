package repository

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"mtbridge/internal/domain"
)

var _ domain.GroupRepository = (*GroupStore)(nil)

// GroupStore keeps the table of explicitly created or updated group
// descriptors in memory and mirrors it to a JSON file on every mutation.
// The in-memory table stays authoritative for the process lifetime even
// when persistence fails.
type GroupStore struct {
	mu           sync.RWMutex
	groups       map[string]*domain.Group
	path         string
	baselinePath string
	log          *logrus.Logger
}

// NewGroupStore creates an empty store backed by path. baselinePath may
// name a larger pre-populated catalogue used to seed a first run.
func NewGroupStore(path, baselinePath string, log *logrus.Logger) *GroupStore {
	return &GroupStore{
		groups:       make(map[string]*domain.Group),
		path:         path,
		baselinePath: baselinePath,
		log:          log,
	}
}

// Load reads the backing file, falling back to the baseline catalogue
// when the backing file does not exist yet. Load fails soft: any error
// resets to an empty table and logs a warning, never aborting startup.
func (s *GroupStore) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups = make(map[string]*domain.Group)

	loaded, err := readGroupFile(s.path)
	switch {
	case err == nil:
		s.groups = loaded
		s.log.WithField("count", len(loaded)).Info("loaded group cache")
		return
	case !errors.Is(err, fs.ErrNotExist):
		s.log.WithError(err).Warn("failed to load group cache, starting empty")
		return
	}

	// First run: seed from the baseline catalogue without overwriting
	// anything already persisted, then write the merge back.
	if s.baselinePath == "" {
		return
	}
	baseline, err := readGroupFile(s.baselinePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.WithError(err).Warn("failed to load baseline group catalogue")
		}
		return
	}
	for name, group := range baseline {
		if _, exists := s.groups[name]; !exists {
			s.groups[name] = group
		}
	}
	s.log.WithField("count", len(baseline)).Info("seeded group cache from baseline catalogue")
	s.saveLocked()
}

// Get returns a snapshot of the named group, case-sensitive exact match.
func (s *GroupStore) Get(name string) (*domain.Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	group, exists := s.groups[name]
	if !exists {
		return nil, false
	}
	return group.Clone(), true
}

// GetAll returns snapshots of every stored group sorted by name.
func (s *GroupStore) GetAll() []*domain.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Group, 0, len(s.groups))
	for _, group := range s.groups {
		result = append(result, group.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Len reports the number of stored groups.
func (s *GroupStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.groups)
}

// Put inserts or replaces a group by name and persists the table. The
// write lock serializes mutations and keeps readers from observing a
// half-written table.
func (s *GroupStore) Put(group *domain.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.groups[group.Name] = group.Clone()
	s.saveLocked()
}

// saveLocked serializes the full table over the backing file. Failure is
// logged and absorbed. Callers must hold the write lock.
func (s *GroupStore) saveLocked() {
	payload, err := json.MarshalIndent(s.groups, "", "  ")
	if err != nil {
		s.log.WithError(err).Error("failed to serialize group cache")
		return
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		s.log.WithError(err).Error("failed to persist group cache")
		return
	}
	s.log.WithField("count", len(s.groups)).Debug("persisted group cache")
}

func readGroupFile(path string) (map[string]*domain.Group, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	groups := make(map[string]*domain.Group)
	if len(raw) == 0 {
		return groups, nil
	}
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}
