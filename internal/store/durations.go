// Package store persists small client-local preferences across card
// lifetimes, standing in for the browser's key/value storage.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"schedcard/internal/core/domain"
	"schedcard/internal/core/port"
)

const durationsFile = "preferences.json"

// DurationStore keeps the per-direction duration-minutes preference in a
// JSON file under the state directory. Values are stored as decimal strings
// under "<scope>-<direction>-timer" keys.
type DurationStore struct {
	mu     sync.Mutex
	path   string
	scope  string
	values map[string]string
}

func NewDurationStore(stateDir, scope string) (*DurationStore, error) {
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create state dir: %w", err)
	}
	s := &DurationStore{
		path:   filepath.Join(stateDir, durationsFile),
		scope:  scope,
		values: map[string]string{},
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", s.path, err)
	}
	return s, nil
}

func (s *DurationStore) key(dir domain.Direction) string {
	return fmt.Sprintf("%s-%s-timer", s.scope, dir)
}

// Duration returns the stored minutes for a direction, defaulting to 30
// when absent or unparseable.
func (s *DurationStore) Duration(dir domain.Direction) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[s.key(dir)]
	if !ok {
		return 30
	}
	minutes, err := strconv.Atoi(v)
	if err != nil || minutes <= 0 {
		return 30
	}
	return minutes
}

func (s *DurationStore) SetDuration(dir domain.Direction, minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[s.key(dir)] = strconv.Itoa(minutes)
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

// ensure interface compliance
var _ port.DurationStore = (*DurationStore)(nil)
