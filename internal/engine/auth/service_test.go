package auth

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sstaudit/internal/engine/sessions"
	"sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)

	query := `
	CREATE TABLE users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		banned INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		token TEXT UNIQUE NOT NULL,
		user_id TEXT NOT NULL,
		active_org_id TEXT,
		ip_address TEXT NOT NULL DEFAULT '',
		user_agent TEXT NOT NULL DEFAULT '',
		impersonated_by TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	);
	`
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *sql.DB) (*Service, *sessions.Service) {
	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	sessionSvc := sessions.NewService(sessionRepo, userRepo, time.Hour)
	return NewService(userRepo, sessionSvc), sessionSvc
}

func TestRegister(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, sessionSvc := newTestService(t, db)

	result, err := svc.Register(RegisterInput{
		Name:            "Alice",
		Email:           "Alice@Example.com",
		Password:        "correct-horse",
		ConfirmPassword: "correct-horse",
	}, "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if result.User.Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %s", result.User.Email)
	}
	if result.User.PasswordHash == "correct-horse" {
		t.Error("Expected password to be hashed")
	}
	if result.Token == "" {
		t.Error("Expected a session token")
	}

	session, err := sessionSvc.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if session == nil {
		t.Fatal("Expected registration to issue a live session")
	}
}

func TestRegister_Validation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)

	tests := []struct {
		name  string
		input RegisterInput
	}{
		{"password mismatch", RegisterInput{Email: "a@example.com", Password: "correct-horse", ConfirmPassword: "other"}},
		{"short password", RegisterInput{Email: "a@example.com", Password: "short", ConfirmPassword: "short"}},
		{"bad email", RegisterInput{Email: "not-an-email", Password: "correct-horse", ConfirmPassword: "correct-horse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(tt.input, "", "")
			if !errors.IsCode(err, errors.ErrCodeBusinessRule) {
				t.Errorf("Expected business rule error, got %v", err)
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)

	input := RegisterInput{Name: "Alice", Email: "alice@example.com", Password: "correct-horse", ConfirmPassword: "correct-horse"}
	if _, err := svc.Register(input, "", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Duplicate check is case-insensitive through normalization.
	input.Email = "ALICE@example.com"
	_, err := svc.Register(input, "", "")
	if !errors.IsCode(err, errors.ErrCodeConflict) {
		t.Errorf("Expected conflict for duplicate email, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)

	if _, err := svc.Register(RegisterInput{
		Name: "Alice", Email: "alice@example.com",
		Password: "correct-horse", ConfirmPassword: "correct-horse",
	}, "", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	result, err := svc.Login(LoginInput{Email: "alice@example.com", Password: "correct-horse"}, "10.0.0.2", "other-agent")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.Session.IPAddress != "10.0.0.2" {
		t.Errorf("Expected session IP 10.0.0.2, got %s", result.Session.IPAddress)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)

	if _, err := svc.Register(RegisterInput{
		Name: "Alice", Email: "alice@example.com",
		Password: "correct-horse", ConfirmPassword: "correct-horse",
	}, "", ""); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Unknown email and wrong password are indistinguishable.
	for _, input := range []LoginInput{
		{Email: "nobody@example.com", Password: "correct-horse"},
		{Email: "alice@example.com", Password: "wrong"},
	} {
		_, err := svc.Login(input, "", "")
		if !errors.IsCode(err, errors.ErrCodeUnauthorized) {
			t.Errorf("Expected unauthorized for %v, got %v", input.Email, err)
		}
	}
}

func TestLogin_Banned(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, _ := newTestService(t, db)

	result, err := svc.Register(RegisterInput{
		Name: "Bob", Email: "bob@example.com",
		Password: "correct-horse", ConfirmPassword: "correct-horse",
	}, "", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := db.Exec("UPDATE users SET banned = 1 WHERE id = ?", result.User.ID); err != nil {
		t.Fatalf("Failed to ban user: %v", err)
	}

	_, err = svc.Login(LoginInput{Email: "bob@example.com", Password: "correct-horse"}, "", "")
	if !errors.IsCode(err, errors.ErrCodeUnauthorized) {
		t.Errorf("Expected unauthorized for banned user, got %v", err)
	}
}

func TestLogoutAll(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, sessionSvc := newTestService(t, db)

	first, err := svc.Register(RegisterInput{
		Name: "Alice", Email: "alice@example.com",
		Password: "correct-horse", ConfirmPassword: "correct-horse",
	}, "", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	second, err := svc.Login(LoginInput{Email: "alice@example.com", Password: "correct-horse"}, "", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := svc.LogoutAll(first.User.ID); err != nil {
		t.Fatalf("LogoutAll failed: %v", err)
	}

	for _, token := range []string{first.Token, second.Token} {
		session, _ := sessionSvc.Validate(token)
		if session != nil {
			t.Error("Expected every session to be revoked")
		}
	}
}

func TestChangePassword(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	svc, sessionSvc := newTestService(t, db)

	current, err := svc.Register(RegisterInput{
		Name: "Alice", Email: "alice@example.com",
		Password: "correct-horse", ConfirmPassword: "correct-horse",
	}, "", "")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	other, err := svc.Login(LoginInput{Email: "alice@example.com", Password: "correct-horse"}, "", "")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Wrong current password is rejected before anything changes.
	err = svc.ChangePassword(current.User.ID, current.Token, ChangePasswordInput{
		CurrentPassword: "wrong", NewPassword: "battery-staple",
	})
	if !errors.IsCode(err, errors.ErrCodeUnauthorized) {
		t.Errorf("Expected unauthorized for wrong current password, got %v", err)
	}

	err = svc.ChangePassword(current.User.ID, current.Token, ChangePasswordInput{
		CurrentPassword: "correct-horse", NewPassword: "battery-staple",
	})
	if err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	// The session that made the change survives; others are revoked.
	session, _ := sessionSvc.Validate(current.Token)
	if session == nil {
		t.Error("Expected current session to survive the change")
	}
	session, _ = sessionSvc.Validate(other.Token)
	if session != nil {
		t.Error("Expected other sessions to be revoked")
	}

	if _, err := svc.Login(LoginInput{Email: "alice@example.com", Password: "battery-staple"}, "", ""); err != nil {
		t.Errorf("Expected login with new password to work, got %v", err)
	}
	_, err = svc.Login(LoginInput{Email: "alice@example.com", Password: "correct-horse"}, "", "")
	if !errors.IsCode(err, errors.ErrCodeUnauthorized) {
		t.Errorf("Expected old password to stop working, got %v", err)
	}
}
