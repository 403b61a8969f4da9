// Package store persists the saved server list and app settings as a JSON
// file, so the paired phone can offer previously used targets.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// Server is one saved connection target.
type Server struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Principal string `json:"principal"`
	ClientID  string `json:"client_id,omitempty"`
	Label     string `json:"label,omitempty"`
}

// Settings holds user-tunable application settings.
type Settings struct {
	AutoRun bool `json:"auto_run"`
}

type fileFormat struct {
	Settings Settings `json:"settings"`
	Servers  []Server `json:"saved_servers"`
}

// Store is a mutex-guarded JSON file store. Writes are atomic
// (write-then-rename) so a crash never leaves a truncated file.
type Store struct {
	path string

	mu   sync.Mutex
	data fileFormat
}

// Open loads the store at path, starting empty when the file is missing.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read server store: %w", err)
	}
	if err := sonic.Unmarshal(raw, &s.data); err != nil {
		return nil, fmt.Errorf("parse server store: %w", err)
	}
	return s, nil
}

// Servers returns a copy of the saved server list.
func (s *Store) Servers() []Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Server, len(s.data.Servers))
	copy(out, s.data.Servers)
	return out
}

// Save upserts a server, keyed on host:port.
func (s *Store) Save(server Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.data.Servers {
		if existing.Host == server.Host && existing.Port == server.Port {
			s.data.Servers[i] = server
			return s.flushLocked()
		}
	}
	s.data.Servers = append(s.data.Servers, server)
	return s.flushLocked()
}

// Delete removes the server keyed on host:port. Deleting an absent server
// is not an error.
func (s *Store) Delete(host string, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data.Servers[:0]
	for _, server := range s.data.Servers {
		if server.Host == host && server.Port == port {
			continue
		}
		kept = append(kept, server)
	}
	s.data.Servers = kept
	return s.flushLocked()
}

// Settings returns the current settings.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Settings
}

// SaveSettings replaces the settings.
func (s *Store) SaveSettings(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Settings = settings
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	raw, err := sonic.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode server store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write server store: %w", err)
	}
	if err := os.Rename(tmp, filepath.Clean(s.path)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace server store: %w", err)
	}
	return nil
}
