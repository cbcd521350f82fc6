package orgs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/models"
)

type RoleInput struct {
	Name        string
	Permissions string
}

// resolveRoleRef finds a dynamic role inside the organization by id or
// name.
func (s *Service) resolveRoleRef(orgID string, ref RoleRef) (*models.OrgRole, error) {
	switch {
	case ref.ID != "":
		role, err := s.roles.GetByID(ref.ID)
		if err != nil {
			return nil, err
		}
		if role == nil || role.OrganizationID != orgID {
			return nil, apperrors.NotFound("Role", "id", ref.ID)
		}
		return role, nil
	case ref.Name != "":
		role, err := s.roles.GetByOrgAndName(orgID, ref.Name)
		if err != nil {
			return nil, err
		}
		if role == nil {
			return nil, apperrors.NotFound("Role", "name", ref.Name)
		}
		return role, nil
	default:
		return nil, apperrors.BusinessRule("role id or name required")
	}
}

// CreateRole defines a dynamic role. Requires OWNER or ADMIN; the name
// must be unique within the organization and must not shadow a built-in
// role.
func (s *Service) CreateRole(orgID string, input RoleInput, actorID string) (*models.OrgRole, error) {
	if err := s.Authorize(orgID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	if _, err := s.resolveOrg(OrgRef{ID: orgID}); err != nil {
		return nil, err
	}

	if err := validateRoleName(input.Name); err != nil {
		return nil, err
	}
	permissions, err := normalizePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	exists, err := s.roles.ExistsByOrgAndName(orgID, input.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict("role already exists in this organization")
	}

	now := time.Now().Unix()
	role := &models.OrgRole{
		ID:             "role_" + uuid.NewString(),
		OrganizationID: orgID,
		Name:           input.Name,
		Permissions:    permissions,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.roles.Create(role); err != nil {
		return nil, err
	}
	return role, nil
}

type UpdateRoleInput struct {
	NewName     *string
	Permissions *string
}

// UpdateRole renames a dynamic role and/or replaces its permission
// document. Requires OWNER or ADMIN.
func (s *Service) UpdateRole(orgID string, ref RoleRef, input UpdateRoleInput, actorID string) (*models.OrgRole, error) {
	if err := s.Authorize(orgID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	role, err := s.resolveRoleRef(orgID, ref)
	if err != nil {
		return nil, err
	}

	if input.NewName != nil && *input.NewName != role.Name {
		if err := validateRoleName(*input.NewName); err != nil {
			return nil, err
		}
		exists, err := s.roles.ExistsByOrgAndName(orgID, *input.NewName)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.Conflict("a role with this name already exists")
		}
		role.Name = *input.NewName
	}
	if input.Permissions != nil {
		permissions, err := normalizePermissions(*input.Permissions)
		if err != nil {
			return nil, err
		}
		role.Permissions = permissions
	}

	role.UpdatedAt = time.Now().Unix()
	if err := s.roles.Update(role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole requires OWNER or ADMIN.
func (s *Service) DeleteRole(orgID string, ref RoleRef, actorID string) error {
	if err := s.Authorize(orgID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return err
	}

	role, err := s.resolveRoleRef(orgID, ref)
	if err != nil {
		return err
	}
	return s.roles.Delete(role.ID)
}

// GetRole is member-visible.
func (s *Service) GetRole(orgID string, ref RoleRef, userID string) (*models.OrgRole, error) {
	if err := s.requireMembership(orgID, userID); err != nil {
		return nil, err
	}
	return s.resolveRoleRef(orgID, ref)
}

// ListRoles is member-visible.
func (s *Service) ListRoles(orgID, userID string) ([]*models.OrgRole, error) {
	if err := s.requireMembership(orgID, userID); err != nil {
		return nil, err
	}
	return s.roles.ListByOrg(orgID)
}

func validateRoleName(name string) error {
	if name == "" {
		return apperrors.BusinessRule("role name required")
	}
	switch name {
	case models.RoleOwner, models.RoleAdmin, models.RoleMember:
		return apperrors.BusinessRule("role name conflicts with a built-in role")
	}
	return nil
}

// normalizePermissions requires a valid {"resource": ["action"]} document
// and re-serializes it in canonical form.
func normalizePermissions(raw string) (string, error) {
	if raw == "" {
		return "{}", nil
	}
	var doc permissionDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return "", apperrors.BusinessRule("permissions must be a JSON object of resource to action list")
	}
	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
