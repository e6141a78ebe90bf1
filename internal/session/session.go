// Package session holds the authenticated user for the lifetime of the
// console process. It is passed explicitly into the gateway and handlers;
// there is no package-global login state.
package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/ankuaru/bidconsole/internal/auction"
)

type Session struct {
	mu    sync.RWMutex
	token string
	user  *auction.User
	path  string
}

// Load restores a previously saved session from the state dir. Invalid or
// missing stored data yields a logged-out session, never an error.
func Load(stateDir string) *Session {
	s := &Session{path: filepath.Join(stateDir, "session.json")}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return s
	}
	var saved struct {
		Token string        `json:"token"`
		User  *auction.User `json:"user"`
	}
	if err := json.Unmarshal(b, &saved); err != nil || saved.Token == "" || saved.User == nil {
		_ = os.Remove(s.path)
		return s
	}
	s.token = saved.Token
	s.user = saved.User
	return s
}

// Set records a login and persists it so the console survives restarts.
func (s *Session) Set(token string, user *auction.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	b, err := json.Marshal(struct {
		Token string        `json:"token"`
		User  *auction.User `json:"user"`
	}{token, user})
	if err == nil {
		_ = os.WriteFile(s.path, b, 0o600)
	}
}

// Clear logs out and removes the persisted session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	_ = os.Remove(s.path)
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) User() *auction.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}
