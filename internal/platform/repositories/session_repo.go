package repositories

import (
	"database/sql"

	"sstaudit/internal/platform/models"
)

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, token, user_id, active_org_id, ip_address, user_agent, impersonated_by, created_at, updated_at, expires_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*models.Session, error) {
	s := &models.Session{}
	err := row.Scan(&s.ID, &s.Token, &s.UserID, &s.ActiveOrgID, &s.IPAddress,
		&s.UserAgent, &s.ImpersonatedBy, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) Create(s *models.Session) error {
	_, err := r.db.Exec(`
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Token, s.UserID, s.ActiveOrgID, s.IPAddress, s.UserAgent,
		s.ImpersonatedBy, s.CreatedAt, s.UpdatedAt, s.ExpiresAt)
	return err
}

func (r *SessionRepository) GetByToken(token string) (*models.Session, error) {
	return scanSession(r.db.QueryRow(`
		SELECT `+sessionColumns+` FROM sessions WHERE token = ?
	`, token))
}

func (r *SessionRepository) GetByID(id string) (*models.Session, error) {
	return scanSession(r.db.QueryRow(`
		SELECT `+sessionColumns+` FROM sessions WHERE id = ?
	`, id))
}

// ListActiveByUserID returns the user's sessions whose expiry is still in
// the future, newest first.
func (r *SessionRepository) ListActiveByUserID(userID string, now int64) ([]*models.Session, error) {
	rows, err := r.db.Query(`
		SELECT `+sessionColumns+` FROM sessions
		WHERE user_id = ? AND expires_at > ?
		ORDER BY created_at DESC
	`, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) UpdateExpiry(id string, expiresAt, updatedAt int64) error {
	_, err := r.db.Exec(`
		UPDATE sessions SET expires_at = ?, updated_at = ? WHERE id = ?
	`, expiresAt, updatedAt, id)
	return err
}

// SetActiveOrg updates the session's active organization. A nil orgID
// clears it.
func (r *SessionRepository) SetActiveOrg(id string, orgID *string, updatedAt int64) error {
	_, err := r.db.Exec(`
		UPDATE sessions SET active_org_id = ?, updated_at = ? WHERE id = ?
	`, orgID, updatedAt, id)
	return err
}

// DeleteByToken is a no-op when the token does not exist.
func (r *SessionRepository) DeleteByToken(token string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (r *SessionRepository) DeleteByID(id string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (r *SessionRepository) DeleteAllByUserID(userID string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

// DeleteExpired removes every session past its expiry and reports how
// many rows went away. Safe to run concurrently with request traffic.
func (r *SessionRepository) DeleteExpired(now int64) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
