package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"sstaudit/internal/engine/orgs"
	"sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/audit"
)

type OrgHandler struct {
	orgSvc *orgs.Service
	audit  *audit.Logger
}

func NewOrgHandler(orgSvc *orgs.Service, auditLog *audit.Logger) *OrgHandler {
	return &OrgHandler{orgSvc: orgSvc, audit: auditLog}
}

type CreateOrgRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	LogoURL  string `json:"logo_url"`
	Metadata string `json:"metadata"`
}

func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	org, err := h.orgSvc.CreateOrganization(orgs.CreateOrgInput{
		Name:     req.Name,
		Slug:     req.Slug,
		LogoURL:  req.LogoURL,
		Metadata: req.Metadata,
	}, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, org)
}

func (h *OrgHandler) List(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	list, err := h.orgSvc.ListUserOrganizations(p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"organizations": list})
}

func (h *OrgHandler) CheckSlug(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("slug")
	available, err := h.orgSvc.SlugAvailable(slug)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *OrgHandler) Get(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	detail, err := h.orgSvc.GetOrganization(param(r, "org_id"), p.User.ID, 0)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type UpdateOrgRequest struct {
	Name     *string `json:"name"`
	Slug     *string `json:"slug"`
	LogoURL  *string `json:"logo_url"`
	Metadata *string `json:"metadata"`
}

func (h *OrgHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	orgID := param(r, "org_id")
	org, err := h.orgSvc.UpdateOrganization(orgID, orgs.UpdateOrgInput{
		Name:     req.Name,
		Slug:     req.Slug,
		LogoURL:  req.LogoURL,
		Metadata: req.Metadata,
	}, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		OrganizationID: orgID,
		ActorID:        p.User.ID,
		Action:         "organization.update",
		ResourceType:   "organization",
		ResourceID:     orgID,
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	writeJSON(w, http.StatusOK, org)
}

func (h *OrgHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	orgID := param(r, "org_id")
	if err := h.orgSvc.DeleteOrganization(orgID, p.User.ID); err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	h.audit.Log(audit.Entry{
		OrganizationID: orgID,
		ActorID:        p.User.ID,
		Action:         "organization.delete",
		ResourceType:   "organization",
		ResourceID:     orgID,
		IPAddress:      clientIP(r),
		UserAgent:      r.UserAgent(),
	})
	w.WriteHeader(http.StatusNoContent)
}

type ActivateOrgRequest struct {
	OrganizationID string `json:"organization_id"`
	Slug           string `json:"slug"`
}

// Activate scopes the caller's session to an organization. An empty body
// clears the active organization.
func (h *OrgHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req ActivateOrgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	org, err := h.orgSvc.SetActiveOrganization(p.Session.Token,
		orgs.OrgRef{ID: req.OrganizationID, Slug: req.Slug}, p.User.ID)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"organization": org})
}

type CheckPermissionRequest struct {
	OrganizationID string `json:"organization_id"`
	Resource       string `json:"resource"`
	Action         string `json:"action"`
}

func (h *OrgHandler) CheckPermission(w http.ResponseWriter, r *http.Request) {
	var req CheckPermissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	p := principal(r)
	orgID := req.OrganizationID
	if orgID == "" {
		orgID = p.ActiveOrgID()
	}

	allowed, err := h.orgSvc.HasPermission(orgID, p.User.ID, req.Resource, req.Action)
	if err != nil {
		errors.WriteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"allowed": allowed})
}
