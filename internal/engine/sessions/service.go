package sessions

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/models"
	"sstaudit/internal/platform/repositories"
)

const DefaultTTL = 7 * 24 * time.Hour

// Service manages opaque database-backed sessions. Tokens carry no
// claims; every check is a lookup against the sessions table.
type Service struct {
	sessions *repositories.SessionRepository
	users    *repositories.UserRepository
	ttl      time.Duration
}

func NewService(sessions *repositories.SessionRepository, users *repositories.UserRepository, ttl time.Duration) *Service {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Service{sessions: sessions, users: users, ttl: ttl}
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Create issues a new session for the user with the configured TTL.
func (s *Service) Create(userID, ip, userAgent string) (*models.Session, error) {
	token, err := GenerateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	session := &models.Session{
		ID:        "ses_" + uuid.NewString(),
		Token:     token,
		UserID:    userID,
		IPAddress: ip,
		UserAgent: userAgent,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now + int64(s.ttl.Seconds()),
	}

	if err := s.sessions.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate resolves a token to a live session. It returns (nil, nil) when
// the token is unknown, the session has expired, or the owning user is
// banned. Expiry is lazy: the row stays until the reaper sweeps it, but
// an expired row never validates.
func (s *Service) Validate(token string) (*models.Session, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessions.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	if session.ExpiresAt <= time.Now().Unix() {
		log.Debug().Str("session_id", session.ID).Msg("rejected expired session")
		return nil, nil
	}

	user, err := s.users.GetByID(session.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Banned {
		log.Warn().Str("user_id", session.UserID).Msg("rejected session of banned user")
		return nil, nil
	}

	return session, nil
}

// Get is Validate with an error instead of absence.
func (s *Service) Get(token string) (*models.Session, error) {
	session, err := s.Validate(token)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.Unauthorized("invalid or expired session")
	}
	return session, nil
}

// Renew extends the session's expiry from now (sliding expiration).
func (s *Service) Renew(token string) (*models.Session, error) {
	session, err := s.Get(token)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	session.ExpiresAt = now + int64(s.ttl.Seconds())
	session.UpdatedAt = now
	if err := s.sessions.UpdateExpiry(session.ID, session.ExpiresAt, now); err != nil {
		return nil, err
	}
	return session, nil
}

// Revoke deletes the session for the token. Idempotent: revoking an
// unknown token succeeds.
func (s *Service) Revoke(token string) error {
	return s.sessions.DeleteByToken(token)
}

// RevokeAll deletes every session owned by the user.
func (s *Service) RevokeAll(userID string) error {
	return s.sessions.DeleteAllByUserID(userID)
}

// RevokeByID deletes one of the user's own sessions, checking ownership.
func (s *Service) RevokeByID(userID, sessionID string) error {
	session, err := s.sessions.GetByID(sessionID)
	if err != nil {
		return err
	}
	if session == nil || session.UserID != userID {
		return apperrors.NotFound("Session", "id", sessionID)
	}
	return s.sessions.DeleteByID(session.ID)
}

// ListActive returns the user's unexpired sessions.
func (s *Service) ListActive(userID string) ([]*models.Session, error) {
	return s.sessions.ListActiveByUserID(userID, time.Now().Unix())
}

// SetActiveOrganization mutates the session's active-organization field.
// No membership policy is enforced here; callers verify membership first.
func (s *Service) SetActiveOrganization(token string, orgID *string) (*models.Session, error) {
	session, err := s.Get(token)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	if err := s.sessions.SetActiveOrg(session.ID, orgID, now); err != nil {
		return nil, err
	}
	session.ActiveOrgID = orgID
	session.UpdatedAt = now
	return session, nil
}
