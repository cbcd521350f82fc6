package orgs

import (
	"encoding/json"

	"sstaudit/internal/platform/models"
)

// permissionDoc is the structured form of a dynamic role's permission
// document: {"resource": ["action", ...]}.
type permissionDoc map[string][]string

// HasPermission decides whether the user's role in the organization may
// perform {resource, action}:
//
//   - no membership: never
//   - OWNER: always
//   - ADMIN: always, except deleting the organization
//   - MEMBER: read only
//   - dynamic role: exact lookup in its permission document
func (s *Service) HasPermission(orgID, userID, resource, action string) (bool, error) {
	member, err := s.members.GetByOrgAndUser(orgID, userID)
	if err != nil {
		return false, err
	}
	if member == nil {
		return false, nil
	}

	switch member.Role {
	case models.RoleOwner:
		return true, nil
	case models.RoleAdmin:
		if resource == "organization" && action == "delete" {
			return false, nil
		}
		return true, nil
	case models.RoleMember:
		return action == "read", nil
	}

	role, err := s.roles.GetByOrgAndName(orgID, member.Role)
	if err != nil {
		return false, err
	}
	if role == nil {
		return false, nil
	}

	var doc permissionDoc
	if err := json.Unmarshal([]byte(role.Permissions), &doc); err != nil {
		// A malformed document grants nothing.
		return false, nil
	}
	for _, allowed := range doc[resource] {
		if allowed == action {
			return true, nil
		}
	}
	return false, nil
}
