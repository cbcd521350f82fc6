package handlers

import (
	"encoding/json"
	"net/http"

	"sstaudit/internal/engine/orgs"
	"sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/audit"
)

type RoleHandler struct {
	orgSvc *orgs.Service
	audit  *audit.Logger
}

func NewRoleHandler(orgSvc *orgs.Service, auditLog *audit.Logger) *RoleHandler {
	return &RoleHandler{orgSvc: orgSvc, audit: auditLog}
}

type CreateRoleRequest struct {
	Name        string `json:"name"`
	Permissions string `json:"permissions"`
}

func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	orgID := param(r, "org_id")
	role, err := h.orgSvc.CreateRole(orgID, orgs.RoleInput{
		Name:        req.Name,
		Permissions: req.Permissions,
	}, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		OrganizationID: orgID,
		ActorID:        p.User.ID,
		Action:         "role.create",
		ResourceType:   "role",
		ResourceID:     role.ID,
		Metadata:       map[string]interface{}{"name": role.Name},
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	writeJSON(w, http.StatusCreated, role)
}

func (h *RoleHandler) List(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	roles, err := h.orgSvc.ListRoles(param(r, "org_id"), p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	role, err := h.orgSvc.GetRole(param(r, "org_id"), orgs.RoleRef{ID: param(r, "role_id")}, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, role)
}

type UpdateRoleRequest struct {
	Name        *string `json:"name"`
	Permissions *string `json:"permissions"`
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	orgID := param(r, "org_id")
	role, err := h.orgSvc.UpdateRole(orgID, orgs.RoleRef{ID: param(r, "role_id")}, orgs.UpdateRoleInput{
		NewName:     req.Name,
		Permissions: req.Permissions,
	}, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		OrganizationID: orgID,
		ActorID:        p.User.ID,
		Action:         "role.update",
		ResourceType:   "role",
		ResourceID:     role.ID,
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	writeJSON(w, http.StatusOK, role)
}

func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	orgID := param(r, "org_id")
	roleID := param(r, "role_id")
	if err := h.orgSvc.DeleteRole(orgID, orgs.RoleRef{ID: roleID}, p.User.ID); err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		OrganizationID: orgID,
		ActorID:        p.User.ID,
		Action:         "role.delete",
		ResourceType:   "role",
		ResourceID:     roleID,
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	w.WriteHeader(http.StatusNoContent)
}
