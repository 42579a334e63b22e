package auth

import (
	"errors"
	"testing"
	"time"

	"tubecast/internal/config"
	"tubecast/internal/store"
	"tubecast/pkg/logger"
)

func newService(t *testing.T) *Service {
	t.Helper()

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	cfg := config.JWTConfig{
		Secret: "test-secret",
		Issuer: "tubecast",
		Expiry: time.Hour,
	}
	return NewService(st, cfg, logger.New("error"))
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)

	user, err := svc.Register("alice", "hunter22")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID == "" {
		t.Error("registered user has no id")
	}
	if user.PasswordHash == "hunter22" {
		t.Error("password stored in plaintext")
	}

	token, loggedIn, err := svc.Login("alice", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("login returned empty token")
	}
	if loggedIn.ID != user.ID {
		t.Errorf("login returned user %s, want %s", loggedIn.ID, user.ID)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != user.ID {
		t.Errorf("token user id = %s, want %s", claims.UserID, user.ID)
	}
	if claims.Username != "alice" {
		t.Errorf("token username = %s, want alice", claims.Username)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newService(t)

	if _, err := svc.Register("ab", "hunter22"); err == nil {
		t.Error("short username accepted")
	}
	if _, err := svc.Register("alice", "pw"); err == nil {
		t.Error("short password accepted")
	}
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	svc := newService(t)

	if _, err := svc.Register("alice", "hunter22"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register("alice", "other-pass"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("duplicate register error = %v, want ErrUsernameTaken", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newService(t)

	if _, err := svc.Register("alice", "hunter22"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login("alice", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login("nobody", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateTokenRejectsForgedToken(t *testing.T) {
	svc := newService(t)
	other := NewService(nil, config.JWTConfig{Secret: "other-secret", Issuer: "tubecast", Expiry: time.Hour}, logger.New("error"))

	if _, err := svc.Register("alice", "hunter22"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, _, err := svc.Login("alice", "hunter22")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret accepted")
	}
	if _, err := svc.ValidateToken("not.a.token"); err == nil {
		t.Error("garbage token accepted")
	}
}
