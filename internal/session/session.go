// Package session keeps the signed-in user's token, active organization and
// display theme between invocations.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Themes accepted by SetTheme. They name glamour styles.
var Themes = []string{"auto", "dark", "light", "notty", "ascii", "dracula", "pink", "tokyo-night"}

// ErrUnknownTheme is returned by SetTheme for names outside Themes
var ErrUnknownTheme = errors.New("unknown theme")

// Session is the persisted state
type Session struct {
	Token          string `yaml:"token,omitempty"`
	OrganizationID string `yaml:"organization_id,omitempty"`
	Theme          string `yaml:"theme,omitempty"`
}

// Store is a Session backed by a YAML file. It implements api.TokenSource.
type Store struct {
	path    string
	mu      sync.RWMutex
	current Session
}

// DefaultPath returns $HOME/.recebe/session.yaml
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".recebe", "session.yaml"), nil
}

// Open loads the session at path. A missing file is an empty session.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.current); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", path, err)
	}
	return s, nil
}

// Token returns the bearer token, empty when signed out
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Token
}

// OrganizationID returns the active organization
func (s *Store) OrganizationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.OrganizationID
}

// Theme returns the display theme, "auto" when unset
func (s *Store) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.Theme == "" {
		return "auto"
	}
	return s.current.Theme
}

// Active reports whether a token is present
func (s *Store) Active() bool {
	return s.Token() != ""
}

// Snapshot returns a copy of the current session
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Login stores a token obtained from the identity provider. An empty
// organization keeps the previously selected one.
func (s *Store) Login(token, organizationID string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token is required")
	}
	return s.update(func(cur *Session) {
		cur.Token = token
		if org := strings.TrimSpace(organizationID); org != "" {
			cur.OrganizationID = org
		}
	})
}

// Logout drops the token and organization. The theme preference is kept.
func (s *Store) Logout() error {
	return s.update(func(cur *Session) {
		cur.Token = ""
		cur.OrganizationID = ""
	})
}

// SetOrganization switches the active organization
func (s *Store) SetOrganization(organizationID string) error {
	org := strings.TrimSpace(organizationID)
	if org == "" {
		return errors.New("organization id is required")
	}
	return s.update(func(cur *Session) {
		cur.OrganizationID = org
	})
}

// SetTheme stores the display theme
func (s *Store) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if !validTheme(theme) {
		return fmt.Errorf("%w %q (choose one of %s)", ErrUnknownTheme, theme, strings.Join(Themes, ", "))
	}
	return s.update(func(cur *Session) {
		cur.Theme = theme
	})
}

func validTheme(theme string) bool {
	for _, t := range Themes {
		if t == theme {
			return true
		}
	}
	return false
}

func (s *Store) update(fn func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	fn(&next)
	if err := s.write(next); err != nil {
		return err
	}
	s.current = next
	return nil
}

func (s *Store) write(sess Session) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	data, err := yaml.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
