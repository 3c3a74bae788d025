// Package localstore is the device-local persistence for the miniapp: the
// cached customer profile and the guest identity map. Writes are atomic
// within one running instance (temp file + rename); concurrent writers from
// separate instances are last-writer-wins.
package localstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/nurilloh-an/telegram-mini-app/internal/domain"
)

const (
	profileFile  = "profile.json"
	guestMapFile = "guest-id-map.json"
)

type Store struct {
	dir    string
	mu     sync.Mutex
	logger *zap.Logger
}

func New(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// Profile returns the cached profile, if any. A corrupt cache file is
// treated as absent and removed, same as an unparsable localStorage entry.
func (s *Store) Profile() (*domain.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, profileFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read cached profile", zap.Error(err))
		}
		return nil, false
	}

	var p domain.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		s.logger.Warn("cached profile is corrupt, discarding", zap.Error(err))
		_ = os.Remove(path)
		return nil, false
	}
	return &p, true
}

func (s *Store) SaveProfile(p *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(profileFile, p)
}

func (s *Store) ClearProfile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, profileFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear profile cache: %w", err)
	}
	return nil
}

// GuestMap loads the persisted phone-digits -> identity map. Corrupt or
// missing state yields an empty map.
func (s *Store) GuestMap() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, guestMapFile)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("failed to read guest id map", zap.Error(err))
		}
		return map[string]int64{}
	}

	var m map[string]int64
	if err := json.Unmarshal(raw, &m); err != nil {
		s.logger.Warn("guest id map is corrupt, resetting", zap.Error(err))
		_ = os.Remove(path)
		return map[string]int64{}
	}
	if m == nil {
		m = map[string]int64{}
	}
	return m
}

func (s *Store) SaveGuestMap(m map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(guestMapFile, m)
}

func (s *Store) writeJSON(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
