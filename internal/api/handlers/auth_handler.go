package handlers

import (
	"encoding/json"
	"net/http"

	"sstaudit/internal/api/middleware"
	"sstaudit/internal/engine/auth"
	"sstaudit/internal/engine/sessions"
	"sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/config"
)

type AuthHandler struct {
	authSvc    *auth.Service
	sessionSvc *sessions.Service
	cookies    config.CookieConfig
}

func NewAuthHandler(authSvc *auth.Service, sessionSvc *sessions.Service, cookies config.CookieConfig) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, sessionSvc: sessionSvc, cookies: cookies}
}

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	result, err := h.authSvc.Register(auth.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, clientIP(r), r.UserAgent())
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	setSessionCookie(w, h.cookies, result.Token, result.ExpiresIn)
	writeJSON(w, http.StatusCreated, result)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	result, err := h.authSvc.Login(auth.LoginInput{Email: req.Email, Password: req.Password},
		clientIP(r), r.UserAgent())
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	setSessionCookie(w, h.cookies, result.Token, result.ExpiresIn)
	writeJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.ExtractToken(r); token != "" {
		if err := h.authSvc.Logout(token); err != nil {
			errors.WriteDomainError(w, err)
			return
		}
	}
	clearSessionCookie(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if err := h.authSvc.LogoutAll(p.User.ID); err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	clearSessionCookie(w, h.cookies)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":          p.User,
		"session":       p.Session,
		"active_org_id": p.Session.ActiveOrgID,
	})
}

func (h *AuthHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	list, err := h.sessionSvc.ListActive(p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": list})
}

func (h *AuthHandler) RevokeSession(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if err := h.sessionSvc.RevokeByID(p.User.ID, param(r, "session_id")); err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Renew extends the current session's expiry (sliding expiration) and
// refreshes the cookie window.
func (h *AuthHandler) Renew(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	session, err := h.sessionSvc.Renew(token)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	expiresIn := int64(h.sessionSvc.TTL().Seconds())
	setSessionCookie(w, h.cookies, token, expiresIn)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session":    session,
		"expires_in": expiresIn,
	})
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	err := h.authSvc.ChangePassword(p.User.ID, middleware.ExtractToken(r), auth.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
