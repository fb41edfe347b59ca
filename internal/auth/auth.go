// Package auth manages users and sessions. The store is in-memory and
// volatile: accounts and sessions reset with the process, like the meeting
// and room state.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("username already registered")
	ErrSessionNotFound    = errors.New("session not found or expired")
)

// User is a registered account. The hash never leaves the package.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a logged-in user's bearer token.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service holds users and sessions behind one lock.
type Service struct {
	mu         sync.RWMutex
	users      map[string]User
	sessions   map[string]Session
	sessionTTL time.Duration
}

// NewService creates an empty store with the given session lifetime.
func NewService(sessionTTL time.Duration) *Service {
	return &Service{
		users:      make(map[string]User),
		sessions:   make(map[string]Session),
		sessionTTL: sessionTTL,
	}
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return nil, ErrUserExists
	}
	user := User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	s.users[username] = user
	return &user, nil
}

// Login checks the credentials and opens a session.
func (s *Service) Login(username, password string) (*Session, error) {
	s.mu.RLock()
	user, exists := s.users[strings.TrimSpace(username)]
	s.mu.RUnlock()
	if !exists {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := generateToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %v", err)
	}

	session := Session{
		Token:     token,
		Username:  user.Username,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	s.mu.Lock()
	s.sessions[token] = session
	s.mu.Unlock()
	return &session, nil
}

// Validate resolves a bearer token to its session, evicting it when expired.
func (s *Service) Validate(token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, exists := s.sessions[token]
	if !exists {
		return nil, ErrSessionNotFound
	}
	if time.Now().After(session.ExpiresAt) {
		delete(s.sessions, token)
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

// Logout drops the session; unknown tokens are ignored.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func generateToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
