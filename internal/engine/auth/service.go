package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"sstaudit/internal/engine/sessions"
	apperrors "sstaudit/internal/pkg/errors"
	"sstaudit/internal/pkg/validator"
	"sstaudit/internal/platform/models"
	"sstaudit/internal/platform/repositories"
)

// Service handles credential auth. Every successful login or
// registration issues a database-backed session.
type Service struct {
	users    *repositories.UserRepository
	sessions *sessions.Service
}

func NewService(users *repositories.UserRepository, sessionSvc *sessions.Service) *Service {
	return &Service{users: users, sessions: sessionSvc}
}

// AuthResult carries the opaque token the edge layer turns into a cookie
// or bearer credential.
type AuthResult struct {
	User      *models.User    `json:"user"`
	Session   *models.Session `json:"-"`
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expires_in"`
}

type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

func (s *Service) Register(input RegisterInput, ip, userAgent string) (*AuthResult, error) {
	if input.Password != input.ConfirmPassword {
		return nil, apperrors.BusinessRule("passwords do not match")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.BusinessRule("password must be at least 8 characters")
	}
	if err := validator.ValidateEmail(input.Email); err != nil {
		return nil, apperrors.BusinessRule(err.Error())
	}
	email := validator.NormalizeEmail(input.Email)

	exists, err := s.users.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	user := &models.User{
		ID:           "usr_" + uuid.NewString(),
		Name:         input.Name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(user); err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(user.ID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Msg("user registered")
	return s.result(user, session), nil
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *Service) Login(input LoginInput, ip, userAgent string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(validator.NormalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	if user.Banned {
		return nil, apperrors.Unauthorized("account is banned")
	}

	session, err := s.sessions.Create(user.ID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", user.ID).Str("ip", ip).Msg("user logged in")
	return s.result(user, session), nil
}

// Logout revokes the current session. Unknown tokens are a no-op.
func (s *Service) Logout(token string) error {
	return s.sessions.Revoke(token)
}

// LogoutAll revokes every session of the user.
func (s *Service) LogoutAll(userID string) error {
	return s.sessions.RevokeAll(userID)
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ChangePassword verifies the current password, rehashes, and revokes all
// other sessions so a stolen token does not survive the change.
func (s *Service) ChangePassword(userID, currentToken string, input ChangePasswordInput) error {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return apperrors.NotFound("User", "id", userID)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}
	if len(input.NewPassword) < 8 {
		return apperrors.BusinessRule("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(userID, string(hash), time.Now().Unix()); err != nil {
		return err
	}

	active, err := s.sessions.ListActive(userID)
	if err != nil {
		return err
	}
	for _, sess := range active {
		if sess.Token == currentToken {
			continue
		}
		if err := s.sessions.Revoke(sess.Token); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) result(user *models.User, session *models.Session) *AuthResult {
	return &AuthResult{
		User:      user,
		Session:   session,
		Token:     session.Token,
		ExpiresIn: int64(s.sessions.TTL().Seconds()),
	}
}
