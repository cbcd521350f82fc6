package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"sstaudit/internal/engine/orgs"
	"sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/audit"
)

type MemberHandler struct {
	orgSvc *orgs.Service
	audit  *audit.Logger
}

func NewMemberHandler(orgSvc *orgs.Service, auditLog *audit.Logger) *MemberHandler {
	return &MemberHandler{orgSvc: orgSvc, audit: auditLog}
}

func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	page, err := h.orgSvc.ListMembers(param(r, "org_id"), p.User.ID, limit, offset)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GetActive returns the caller's membership in the session's active
// organization.
func (h *MemberHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	orgID := p.ActiveOrgID()
	if orgID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeBusinessRule, "No active organization on this session", nil)
		return
	}

	member, err := h.orgSvc.GetActiveMember(orgID, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *MemberHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	orgID := param(r, "org_id")
	member, err := h.orgSvc.AddMember(orgID, req.UserID, req.Role, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		OrganizationID: orgID,
		ActorID:        p.User.ID,
		Action:         "member.add",
		ResourceType:   "member",
		ResourceID:     member.ID,
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	writeJSON(w, http.StatusCreated, member)
}

// Remove accepts a member id or a user email as the path identifier.
func (h *MemberHandler) Remove(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	orgID := param(r, "org_id")
	idOrEmail := param(r, "member_id")

	ref := orgs.MemberRef{ID: idOrEmail}
	if strings.Contains(idOrEmail, "@") {
		ref = orgs.MemberRef{Email: idOrEmail}
	}

	if err := h.orgSvc.RemoveMember(orgID, ref, p.User.ID); err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		OrganizationID: orgID,
		ActorID:        p.User.ID,
		Action:         "member.remove",
		ResourceType:   "member",
		ResourceID:     idOrEmail,
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	w.WriteHeader(http.StatusNoContent)
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}

func (h *MemberHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemberRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	orgID := param(r, "org_id")
	member, err := h.orgSvc.UpdateMemberRole(orgID, param(r, "member_id"), req.Role, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		OrganizationID: orgID,
		ActorID:        p.User.ID,
		Action:         "member.role_change",
		ResourceType:   "member",
		ResourceID:     member.ID,
		Metadata:       map[string]interface{}{"role": req.Role},
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	writeJSON(w, http.StatusOK, member)
}

func (h *MemberHandler) Leave(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	if err := h.orgSvc.LeaveOrganization(param(r, "org_id"), p.User.ID); err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
