package handlers

import (
	"encoding/json"
	"net/http"

	"sstaudit/internal/engine/orgs"
	"sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/audit"
)

type InviteHandler struct {
	orgSvc *orgs.Service
	audit  *audit.Logger
}

func NewInviteHandler(orgSvc *orgs.Service, auditLog *audit.Logger) *InviteHandler {
	return &InviteHandler{orgSvc: orgSvc, audit: auditLog}
}

type CreateInviteRequest struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	Resend bool   `json:"resend"`
}

func (h *InviteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	orgID := param(r, "org_id")
	invite, err := h.orgSvc.InviteMember(orgID, orgs.InviteInput{
		Email:  req.Email,
		Role:   req.Role,
		Resend: req.Resend,
	}, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		OrganizationID: orgID,
		ActorID:        p.User.ID,
		Action:         "invitation.create",
		ResourceType:   "invitation",
		ResourceID:     invite.ID,
		Metadata:       map[string]interface{}{"email": invite.Email, "role": invite.Role},
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	writeJSON(w, http.StatusCreated, invite)
}

func (h *InviteHandler) List(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	invites, err := h.orgSvc.ListInvites(param(r, "org_id"), p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

// Mine lists the caller's own pending, unexpired invitations across all
// organizations.
func (h *InviteHandler) Mine(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	invites, err := h.orgSvc.ListUserInvites(p.User.Email)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (h *InviteHandler) Get(w http.ResponseWriter, r *http.Request) {
	invite, err := h.orgSvc.GetInvite(param(r, "invite_id"))
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invite)
}

func (h *InviteHandler) Accept(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	member, err := h.orgSvc.AcceptInvite(param(r, "invite_id"), p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *InviteHandler) Reject(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if err := h.orgSvc.RejectInvite(param(r, "invite_id"), p.User.ID); err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InviteHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	inviteID := param(r, "invite_id")
	if err := h.orgSvc.CancelInvite(inviteID, p.User.ID); err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		ActorID:      p.User.ID,
		Action:       "invitation.cancel",
		ResourceType: "invitation",
		ResourceID:   inviteID,
		IPAddress:    clientIP(r),
		UserAgent:    r.UserAgent(),
	})
	w.WriteHeader(http.StatusNoContent)
}
