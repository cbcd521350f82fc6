package orgs

import (
	"time"

	"github.com/google/uuid"

	apperrors "sstaudit/internal/pkg/errors"
	"sstaudit/internal/platform/models"
)

// resolveMember finds a member inside the organization by member id or
// by user email.
func (s *Service) resolveMember(orgID string, ref MemberRef) (*models.Member, error) {
	switch {
	case ref.ID != "":
		member, err := s.members.GetByID(ref.ID)
		if err != nil {
			return nil, err
		}
		if member == nil || member.OrganizationID != orgID {
			return nil, apperrors.NotFound("Member", "id", ref.ID)
		}
		return member, nil
	case ref.Email != "":
		member, err := s.members.GetByOrgAndEmail(orgID, ref.Email)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, apperrors.NotFound("Member", "email", ref.Email)
		}
		return member, nil
	default:
		return nil, apperrors.BusinessRule("member id or email required")
	}
}

// MemberPage is a bounded slice of an organization's member list.
type MemberPage struct {
	Members []*models.Member `json:"members"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ListMembers requires membership; page size defaults to the configured
// limit.
func (s *Service) ListMembers(orgID, userID string, limit, offset int) (*MemberPage, error) {
	if err := s.requireMembership(orgID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.memberPageSize
	}
	if offset < 0 {
		offset = 0
	}

	members, err := s.members.ListByOrg(orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.members.CountByOrg(orgID)
	if err != nil {
		return nil, err
	}
	return &MemberPage{Members: members, Total: total, Limit: limit, Offset: offset}, nil
}

// GetActiveMember returns the caller's own membership in the organization.
func (s *Service) GetActiveMember(orgID, userID string) (*models.Member, error) {
	member, err := s.members.GetByOrgAndUser(orgID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.NotFound("Member", "user", userID)
	}
	return member, nil
}

// AddMember adds a user directly, without the invitation flow. Requires
// OWNER or ADMIN.
func (s *Service) AddMember(orgID, targetUserID, role, actorID string) (*models.Member, error) {
	if err := s.Authorize(orgID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	if _, err := s.resolveOrg(OrgRef{ID: orgID}); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(targetUserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User", "id", targetUserID)
	}

	exists, err := s.members.ExistsByOrgAndUser(orgID, targetUserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.BusinessRule("user is already a member of this organization")
	}

	if err := s.validateRoleValue(orgID, role); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	member := &models.Member{
		ID:             "mem_" + uuid.NewString(),
		OrganizationID: orgID,
		UserID:         targetUserID,
		Role:           role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.members.Create(member); err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember requires OWNER or ADMIN. The OWNER can never be removed.
func (s *Service) RemoveMember(orgID string, ref MemberRef, actorID string) error {
	if err := s.Authorize(orgID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return err
	}

	member, err := s.resolveMember(orgID, ref)
	if err != nil {
		return err
	}

	if member.Role == models.RoleOwner {
		return apperrors.BusinessRule("the organization owner cannot be removed")
	}

	return s.members.Delete(member.ID)
}

// UpdateMemberRole requires OWNER or ADMIN. The OWNER's role is immutable
// and only an OWNER may grant OWNER.
func (s *Service) UpdateMemberRole(orgID, memberID, newRole, actorID string) (*models.Member, error) {
	if err := s.Authorize(orgID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	member, err := s.resolveMember(orgID, MemberRef{ID: memberID})
	if err != nil {
		return nil, err
	}

	if member.Role == models.RoleOwner {
		return nil, apperrors.BusinessRule("the owner's role cannot be changed")
	}

	if newRole == models.RoleOwner {
		if err := s.Authorize(orgID, actorID, models.RoleOwner); err != nil {
			return nil, err
		}
	}

	if err := s.validateRoleValue(orgID, newRole); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	if err := s.members.UpdateRole(member.ID, newRole, now); err != nil {
		return nil, err
	}
	member.Role = newRole
	member.UpdatedAt = now
	return member, nil
}

// LeaveOrganization removes the caller's own membership. The OWNER cannot
// leave; there is no ownership-transfer operation.
func (s *Service) LeaveOrganization(orgID, userID string) error {
	member, err := s.members.GetByOrgAndUser(orgID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperrors.NotFound("Member", "user", userID)
	}

	if member.Role == models.RoleOwner {
		return apperrors.BusinessRule("the owner cannot leave the organization")
	}

	return s.members.Delete(member.ID)
}

// validateRoleValue accepts the built-in roles or a dynamic role defined
// for the organization.
func (s *Service) validateRoleValue(orgID, role string) error {
	switch role {
	case models.RoleOwner, models.RoleAdmin, models.RoleMember:
		return nil
	}
	exists, err := s.roles.ExistsByOrgAndName(orgID, role)
	if err != nil {
		return err
	}
	if !exists {
		return apperrors.BusinessRule("role is not defined for this organization")
	}
	return nil
}
