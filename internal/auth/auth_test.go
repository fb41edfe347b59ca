package auth

import (
	"errors"
	"testing"
	"time"
)

func TestRegisterAndLogin(t *testing.T) {
	s := NewService(time.Hour)

	user, err := s.Register("alice", "s3cret")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("unexpected username: %q", user.Username)
	}
	if user.PasswordHash == "s3cret" || user.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	session, err := s.Login("alice", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if session.Token == "" || session.Username != "alice" {
		t.Errorf("unexpected session: %+v", session)
	}

	resolved, err := s.Validate(session.Token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if resolved.Username != "alice" {
		t.Errorf("unexpected session user: %q", resolved.Username)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s := NewService(time.Hour)
	if _, err := s.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Register("alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestRegisterRejectsBlankFields(t *testing.T) {
	s := NewService(time.Hour)
	if _, err := s.Register("", "pw"); err == nil {
		t.Error("expected an error for a blank username")
	}
	if _, err := s.Register("alice", ""); err == nil {
		t.Error("expected an error for a blank password")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	s := NewService(time.Hour)
	if _, err := s.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Login("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := s.Login("nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown users get the same error, got %v", err)
	}
}

func TestValidateExpiredSessionIsEvicted(t *testing.T) {
	s := NewService(-time.Minute)
	if _, err := s.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	session, err := s.Login("alice", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Validate(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound for an expired token, got %v", err)
	}
	// Eviction is permanent, not just a rejected lookup.
	if _, err := s.Validate(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after eviction, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	s := NewService(time.Hour)
	if _, err := s.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	session, err := s.Login("alice", "pw")
	if err != nil {
		t.Fatal(err)
	}

	s.Logout(session.Token)
	if _, err := s.Validate(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after logout, got %v", err)
	}

	// Logging out an unknown token is a no-op.
	s.Logout("does-not-exist")
}
