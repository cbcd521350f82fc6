package sessions

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/models"
	"sstaudit/internal/platform/repositories"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}

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

func insertUser(t *testing.T, db *sql.DB, id, email string, banned bool) {
	now := time.Now().Unix()
	_, err := db.Exec(
		"INSERT INTO users (id, name, email, password_hash, banned, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, "Test User", email, "hash", banned, now, now)
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
}

func newTestService(t *testing.T, db *sql.DB, ttl time.Duration) *Service {
	sessionRepo := repositories.NewSessionRepository(db)
	userRepo := repositories.NewUserRepository(db)
	return NewService(sessionRepo, userRepo, ttl)
}

func TestService_CreateAndValidate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)
	insertUser(t, db, "usr_1", "alice@example.com", false)

	session, err := svc.Create("usr_1", "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if session.Token == "" {
		t.Fatal("Expected a token on the created session")
	}

	got, err := svc.Validate(session.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected a valid session")
	}
	if got.UserID != "usr_1" {
		t.Errorf("Expected user usr_1, got %s", got.UserID)
	}
	if got.IPAddress != "10.0.0.1" {
		t.Errorf("Expected IP 10.0.0.1, got %s", got.IPAddress)
	}
}

func TestService_Validate_UnknownToken(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)

	got, err := svc.Validate("no-such-token")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got != nil {
		t.Error("Expected nil session for unknown token")
	}

	got, err = svc.Validate("")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got != nil {
		t.Error("Expected nil session for empty token")
	}
}

func TestService_Validate_Expired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	insertUser(t, db, "usr_1", "alice@example.com", false)
	sessionRepo := repositories.NewSessionRepository(db)
	svc := newTestService(t, db, time.Hour)

	// Session that expired a minute ago. The row is still in the table:
	// expiry is enforced lazily, not by deletion.
	now := time.Now().Unix()
	expired := &models.Session{
		ID:        "ses_expired",
		Token:     "expired-token",
		UserID:    "usr_1",
		CreatedAt: now - 3600,
		UpdatedAt: now - 3600,
		ExpiresAt: now - 60,
	}
	if err := sessionRepo.Create(expired); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}

	got, err := svc.Validate("expired-token")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got != nil {
		t.Error("Expected expired session to be rejected")
	}

	row, err := sessionRepo.GetByToken("expired-token")
	if err != nil {
		t.Fatalf("GetByToken failed: %v", err)
	}
	if row == nil {
		t.Error("Expected expired row to remain until the reaper sweeps it")
	}
}

func TestService_Validate_BannedUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)
	insertUser(t, db, "usr_banned", "bob@example.com", false)

	session, err := svc.Create("usr_banned", "", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	// Ban takes effect on the next validation even though the session
	// row is untouched.
	if _, err := db.Exec("UPDATE users SET banned = 1 WHERE id = ?", "usr_banned"); err != nil {
		t.Fatalf("Failed to ban user: %v", err)
	}

	got, err := svc.Validate(session.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got != nil {
		t.Error("Expected session of banned user to be rejected")
	}
}

func TestService_Renew_SlidingExpiry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)
	insertUser(t, db, "usr_1", "alice@example.com", false)

	session, err := svc.Create("usr_1", "", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	originalExpiry := session.ExpiresAt

	// Shrink the stored expiry so the renewed one is measurably larger.
	sessionRepo := repositories.NewSessionRepository(db)
	if err := sessionRepo.UpdateExpiry(session.ID, originalExpiry-1800, time.Now().Unix()); err != nil {
		t.Fatalf("Failed to shrink expiry: %v", err)
	}

	renewed, err := svc.Renew(session.Token)
	if err != nil {
		t.Fatalf("Renew failed: %v", err)
	}
	if renewed.ExpiresAt < originalExpiry {
		t.Errorf("Expected renewed expiry >= %d, got %d", originalExpiry, renewed.ExpiresAt)
	}
}

func TestService_Renew_InvalidToken(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)

	_, err := svc.Renew("no-such-token")
	if err == nil {
		t.Fatal("Expected error renewing an unknown token")
	}
	if !errors.IsCode(err, errors.ErrCodeUnauthorized) {
		t.Errorf("Expected unauthorized error, got %v", err)
	}
}

func TestService_Revoke(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)
	insertUser(t, db, "usr_1", "alice@example.com", false)

	session, err := svc.Create("usr_1", "", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := svc.Revoke(session.Token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}

	got, err := svc.Validate(session.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got != nil {
		t.Error("Expected revoked session to be invalid")
	}

	// Revoking again is a no-op, not an error.
	if err := svc.Revoke(session.Token); err != nil {
		t.Errorf("Expected idempotent revoke, got %v", err)
	}
}

func TestService_ParallelSessions_IndependentlyRevocable(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)
	insertUser(t, db, "usr_1", "alice@example.com", false)

	first, err := svc.Create("usr_1", "", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	second, err := svc.Create("usr_1", "", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if first.Token == second.Token {
		t.Fatal("Expected distinct tokens for parallel sessions")
	}

	if err := svc.Revoke(first.Token); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if got, _ := svc.Validate(first.Token); got != nil {
		t.Error("Expected first session to be revoked")
	}
	if got, _ := svc.Validate(second.Token); got == nil {
		t.Error("Expected second session to survive")
	}
}

func TestService_RevokeAll_IsolatedPerUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)
	insertUser(t, db, "usr_1", "alice@example.com", false)
	insertUser(t, db, "usr_2", "bob@example.com", false)

	s1, _ := svc.Create("usr_1", "", "")
	s2, _ := svc.Create("usr_1", "", "")
	other, _ := svc.Create("usr_2", "", "")

	if err := svc.RevokeAll("usr_1"); err != nil {
		t.Fatalf("RevokeAll failed: %v", err)
	}

	for _, token := range []string{s1.Token, s2.Token} {
		got, _ := svc.Validate(token)
		if got != nil {
			t.Error("Expected all of usr_1's sessions to be revoked")
		}
	}

	got, err := svc.Validate(other.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if got == nil {
		t.Error("Expected usr_2's session to survive usr_1's revoke-all")
	}
}

func TestService_RevokeByID_OwnershipCheck(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)
	insertUser(t, db, "usr_1", "alice@example.com", false)
	insertUser(t, db, "usr_2", "bob@example.com", false)

	session, err := svc.Create("usr_1", "", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	// A different user cannot revoke it.
	err = svc.RevokeByID("usr_2", session.ID)
	if !errors.IsCode(err, errors.ErrCodeNotFound) {
		t.Errorf("Expected not-found for foreign session, got %v", err)
	}

	if err := svc.RevokeByID("usr_1", session.ID); err != nil {
		t.Fatalf("RevokeByID failed: %v", err)
	}
	got, _ := svc.Validate(session.Token)
	if got != nil {
		t.Error("Expected session to be revoked")
	}
}

func TestService_ListActive_SkipsExpired(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)
	insertUser(t, db, "usr_1", "alice@example.com", false)

	live, err := svc.Create("usr_1", "", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	sessionRepo := repositories.NewSessionRepository(db)
	now := time.Now().Unix()
	expired := &models.Session{
		ID:        "ses_old",
		Token:     "old-token",
		UserID:    "usr_1",
		CreatedAt: now - 7200,
		UpdatedAt: now - 7200,
		ExpiresAt: now - 60,
	}
	if err := sessionRepo.Create(expired); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}

	list, err := svc.ListActive("usr_1")
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 active session, got %d", len(list))
	}
	if list[0].ID != live.ID {
		t.Errorf("Expected session %s, got %s", live.ID, list[0].ID)
	}
}

func TestService_SetActiveOrganization(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	svc := newTestService(t, db, time.Hour)
	insertUser(t, db, "usr_1", "alice@example.com", false)

	session, err := svc.Create("usr_1", "", "")
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	orgID := "org_1"
	updated, err := svc.SetActiveOrganization(session.Token, &orgID)
	if err != nil {
		t.Fatalf("SetActiveOrganization failed: %v", err)
	}
	if updated.ActiveOrgID == nil || *updated.ActiveOrgID != "org_1" {
		t.Error("Expected active org to be set")
	}

	cleared, err := svc.SetActiveOrganization(session.Token, nil)
	if err != nil {
		t.Fatalf("SetActiveOrganization failed: %v", err)
	}
	if cleared.ActiveOrgID != nil {
		t.Error("Expected active org to be cleared")
	}
}
