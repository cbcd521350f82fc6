package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"sstaudit/internal/engine/sessions"
	"sstaudit/internal/platform/repositories"
)

func newTestMiddleware(t *testing.T) (*SessionMiddleware, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	sessionRepo := repositories.NewSessionRepository(db)
	userRepo := repositories.NewUserRepository(db)
	sessionSvc := sessions.NewService(sessionRepo, userRepo, time.Hour)
	return NewSessionMiddleware(sessionSvc, userRepo), mock
}

func sessionRow(token string, expiresAt int64) *sqlmock.Rows {
	now := time.Now().Unix()
	return sqlmock.NewRows([]string{"id", "token", "user_id", "active_org_id", "ip_address",
		"user_agent", "impersonated_by", "created_at", "updated_at", "expires_at"}).
		AddRow("ses_1", token, "usr_1", nil, "10.0.0.1", "agent", nil, now, now, expiresAt)
}

func userRow(banned bool) *sqlmock.Rows {
	now := time.Now().Unix()
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "banned", "created_at", "updated_at"}).
		AddRow("usr_1", "Alice", "alice@example.com", "hash", banned, now, now)
}

func TestSessionMiddleware_AttachesPrincipal(t *testing.T) {
	mid, mock := newTestMiddleware(t)

	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE token = ?").
		WithArgs("good-token").
		WillReturnRows(sessionRow("good-token", time.Now().Add(time.Hour).Unix()))
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("usr_1").
		WillReturnRows(userRow(false))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")

	rr := httptest.NewRecorder()
	handler := mid.Handle(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			t.Fatal("Expected a principal on the context")
		}
		if p.User.ID != "usr_1" {
			t.Errorf("Expected user usr_1, got %s", p.User.ID)
		}
		if p.Session.Token != "good-token" {
			t.Errorf("Expected session token to match, got %s", p.Session.Token)
		}
		w.WriteHeader(http.StatusOK)
	})
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSessionMiddleware_FailsOpen(t *testing.T) {
	t.Run("no token", func(t *testing.T) {
		mid, _ := newTestMiddleware(t)
		req := httptest.NewRequest("GET", "/", nil)

		rr := httptest.NewRecorder()
		handler := mid.Handle(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFrom(r.Context()); ok {
				t.Error("Expected no principal without a token")
			}
			w.WriteHeader(http.StatusOK)
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected request to pass through, got %v", rr.Code)
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		mid, mock := newTestMiddleware(t)
		mock.ExpectQuery("SELECT (.+) FROM sessions WHERE token = ?").
			WithArgs("bad-token").
			WillReturnRows(sqlmock.NewRows([]string{"id", "token", "user_id", "active_org_id", "ip_address",
				"user_agent", "impersonated_by", "created_at", "updated_at", "expires_at"}))

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer bad-token")

		rr := httptest.NewRecorder()
		handler := mid.Handle(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFrom(r.Context()); ok {
				t.Error("Expected no principal for an unknown token")
			}
			w.WriteHeader(http.StatusOK)
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected request to pass through, got %v", rr.Code)
		}
	})

	t.Run("expired session", func(t *testing.T) {
		mid, mock := newTestMiddleware(t)
		mock.ExpectQuery("SELECT (.+) FROM sessions WHERE token = ?").
			WithArgs("stale-token").
			WillReturnRows(sessionRow("stale-token", time.Now().Add(-time.Minute).Unix()))

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Authorization", "Bearer stale-token")

		rr := httptest.NewRecorder()
		handler := mid.Handle(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := PrincipalFrom(r.Context()); ok {
				t.Error("Expected no principal for an expired session")
			}
			w.WriteHeader(http.StatusOK)
		})
		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected request to pass through, got %v", rr.Code)
		}
	})
}

func TestRequireAuth(t *testing.T) {
	mid, mock := newTestMiddleware(t)

	// Unauthenticated requests stop here with 401.
	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler := mid.Handle(RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		t.Error("Handler should not be called")
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %v", rr.Code)
	}

	// Authenticated ones continue.
	mock.ExpectQuery("SELECT (.+) FROM sessions WHERE token = ?").
		WithArgs("good-token").
		WillReturnRows(sessionRow("good-token", time.Now().Add(time.Hour).Unix()))
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("usr_1").
		WillReturnRows(userRow(false))

	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good-token"})
	rr = httptest.NewRecorder()
	handler = mid.Handle(RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected 200, got %v", rr.Code)
	}
}

func TestExtractToken(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		cookie   string
		expected string
	}{
		{"bearer header", "Bearer abc", "", "abc"},
		{"cookie only", "", "xyz", "xyz"},
		{"bearer wins over cookie", "Bearer abc", "xyz", "abc"},
		{"non-bearer header ignored", "Basic abc", "xyz", "xyz"},
		{"nothing", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: tt.cookie})
			}
			if got := ExtractToken(req); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
