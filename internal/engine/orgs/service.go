package orgs

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sstaudit/internal/engine/sessions"
	apperrors "sstaudit/internal/pkg/errors"
	"sstaudit/internal/pkg/validator"
	"sstaudit/internal/platform/models"
	"sstaudit/internal/platform/repositories"
)

const (
	DefaultInviteTTL       = 48 * time.Hour
	DefaultMemberPageSize  = 100
)

// OrgRef identifies an organization by exactly one of id or slug.
type OrgRef struct {
	ID   string
	Slug string
}

// MemberRef identifies a member by exactly one of member id or user email.
type MemberRef struct {
	ID    string
	Email string
}

// RoleRef identifies a dynamic role by exactly one of id or name.
type RoleRef struct {
	ID   string
	Name string
}

type Service struct {
	orgs     *repositories.OrganizationRepository
	users    *repositories.UserRepository
	members  *repositories.MemberRepository
	invites  *repositories.InviteRepository
	roles    *repositories.OrgRoleRepository
	sessions *sessions.Service

	inviteTTL      time.Duration
	memberPageSize int
}

func NewService(
	orgs *repositories.OrganizationRepository,
	users *repositories.UserRepository,
	members *repositories.MemberRepository,
	invites *repositories.InviteRepository,
	roles *repositories.OrgRoleRepository,
	sessionSvc *sessions.Service,
	inviteTTL time.Duration,
	memberPageSize int,
) *Service {
	if inviteTTL == 0 {
		inviteTTL = DefaultInviteTTL
	}
	if memberPageSize == 0 {
		memberPageSize = DefaultMemberPageSize
	}
	return &Service{
		orgs:           orgs,
		users:          users,
		members:        members,
		invites:        invites,
		roles:          roles,
		sessions:       sessionSvc,
		inviteTTL:      inviteTTL,
		memberPageSize: memberPageSize,
	}
}

type CreateOrgInput struct {
	Name     string
	Slug     string
	LogoURL  string
	Metadata string
}

// CreateOrganization creates the organization and its OWNER membership in
// one transaction.
func (s *Service) CreateOrganization(input CreateOrgInput, userID string) (*models.Organization, error) {
	if err := validator.ValidateSlug(input.Slug); err != nil {
		return nil, apperrors.BusinessRule(err.Error())
	}

	exists, err := s.orgs.ExistsBySlug(input.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict("slug already in use")
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.NotFound("User", "id", userID)
	}

	now := time.Now().Unix()
	org := &models.Organization{
		ID:        "org_" + uuid.NewString(),
		Name:      input.Name,
		Slug:      input.Slug,
		LogoURL:   input.LogoURL,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	owner := &models.Member{
		ID:             "mem_" + uuid.NewString(),
		OrganizationID: org.ID,
		UserID:         userID,
		Role:           models.RoleOwner,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.orgs.BeginTx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.orgs.CreateTx(tx, org); err != nil {
		return nil, err
	}
	if err := s.members.CreateTx(tx, owner); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().Str("org_id", org.ID).Str("slug", org.Slug).Str("owner", userID).
		Msg("organization created")
	return org, nil
}

// SlugAvailable reports whether the slug is free.
func (s *Service) SlugAvailable(slug string) (bool, error) {
	exists, err := s.orgs.ExistsBySlug(slug)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// ListUserOrganizations returns the organizations the user is a member of.
func (s *Service) ListUserOrganizations(userID string) ([]*models.Organization, error) {
	return s.members.ListOrgsByUser(userID)
}

// resolveOrg looks up an organization by id or slug.
func (s *Service) resolveOrg(ref OrgRef) (*models.Organization, error) {
	var org *models.Organization
	var err error
	switch {
	case ref.ID != "":
		org, err = s.orgs.GetByID(ref.ID)
		if err != nil {
			return nil, err
		}
		if org == nil {
			return nil, apperrors.NotFound("Organization", "id", ref.ID)
		}
	case ref.Slug != "":
		org, err = s.orgs.GetBySlug(ref.Slug)
		if err != nil {
			return nil, err
		}
		if org == nil {
			return nil, apperrors.NotFound("Organization", "slug", ref.Slug)
		}
	default:
		return nil, apperrors.BusinessRule("organization id or slug required")
	}
	return org, nil
}

// OrgDetail is the full organization view: the org itself, a bounded
// member list and the pending invitations.
type OrgDetail struct {
	Organization *models.Organization `json:"organization"`
	Members      []*models.Member     `json:"members"`
	MemberCount  int                  `json:"member_count"`
	Invitations  []*models.Invitation `json:"invitations"`
}

// GetOrganization returns the detail view. Any member may read it.
func (s *Service) GetOrganization(orgID, userID string, memberLimit int) (*OrgDetail, error) {
	org, err := s.resolveOrg(OrgRef{ID: orgID})
	if err != nil {
		return nil, err
	}

	if err := s.requireMembership(orgID, userID); err != nil {
		return nil, err
	}

	if memberLimit <= 0 {
		memberLimit = s.memberPageSize
	}
	members, err := s.members.ListByOrg(orgID, memberLimit, 0)
	if err != nil {
		return nil, err
	}
	count, err := s.members.CountByOrg(orgID)
	if err != nil {
		return nil, err
	}
	invites, err := s.invites.ListPendingByOrg(orgID)
	if err != nil {
		return nil, err
	}

	return &OrgDetail{
		Organization: org,
		Members:      members,
		MemberCount:  count,
		Invitations:  invites,
	}, nil
}

type UpdateOrgInput struct {
	Name     *string
	Slug     *string
	LogoURL  *string
	Metadata *string
}

// UpdateOrganization requires OWNER or ADMIN.
func (s *Service) UpdateOrganization(orgID string, input UpdateOrgInput, userID string) (*models.Organization, error) {
	org, err := s.resolveOrg(OrgRef{ID: orgID})
	if err != nil {
		return nil, err
	}

	if err := s.Authorize(orgID, userID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	if input.Slug != nil && *input.Slug != org.Slug {
		if err := validator.ValidateSlug(*input.Slug); err != nil {
			return nil, apperrors.BusinessRule(err.Error())
		}
		exists, err := s.orgs.ExistsBySlug(*input.Slug)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.Conflict("slug already in use")
		}
		org.Slug = *input.Slug
	}
	if input.Name != nil {
		org.Name = *input.Name
	}
	if input.LogoURL != nil {
		org.LogoURL = *input.LogoURL
	}
	if input.Metadata != nil {
		org.Metadata = *input.Metadata
	}

	org.UpdatedAt = time.Now().Unix()
	if err := s.orgs.Update(org); err != nil {
		return nil, err
	}
	return org, nil
}

// DeleteOrganization requires OWNER. Memberships, invitations and dynamic
// roles are removed through the schema's FK cascade; sessions scoped to
// the organization lose their active-org reference.
func (s *Service) DeleteOrganization(orgID, userID string) error {
	if _, err := s.resolveOrg(OrgRef{ID: orgID}); err != nil {
		return err
	}

	if err := s.Authorize(orgID, userID, models.RoleOwner); err != nil {
		return err
	}

	if err := s.orgs.Delete(orgID); err != nil {
		return err
	}
	log.Info().Str("org_id", orgID).Str("deleted_by", userID).Msg("organization deleted")
	return nil
}

// SetActiveOrganization scopes the session to an organization after
// verifying membership. A zero ref clears the active organization.
func (s *Service) SetActiveOrganization(token string, ref OrgRef, userID string) (*models.Organization, error) {
	if ref.ID == "" && ref.Slug == "" {
		if _, err := s.sessions.SetActiveOrganization(token, nil); err != nil {
			return nil, err
		}
		return nil, nil
	}

	org, err := s.resolveOrg(ref)
	if err != nil {
		return nil, err
	}

	if err := s.requireMembership(org.ID, userID); err != nil {
		return nil, err
	}

	if _, err := s.sessions.SetActiveOrganization(token, &org.ID); err != nil {
		return nil, err
	}
	return org, nil
}

// requireMembership fails with Unauthorized when the user is not a member.
func (s *Service) requireMembership(orgID, userID string) error {
	isMember, err := s.members.ExistsByOrgAndUser(orgID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return apperrors.Unauthorized("user is not a member of this organization")
	}
	return nil
}

// ResolveRole returns the membership role of the user in the organization.
func (s *Service) ResolveRole(orgID, userID string) (string, error) {
	member, err := s.members.GetByOrgAndUser(orgID, userID)
	if err != nil {
		return "", err
	}
	if member == nil {
		return "", apperrors.NotFound("Member", "user", userID)
	}
	return member.Role, nil
}

// Authorize guards mutating operations: the user must be a member and
// hold one of the allowed roles.
func (s *Service) Authorize(orgID, userID string, allowedRoles ...string) error {
	member, err := s.members.GetByOrgAndUser(orgID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return apperrors.Unauthorized("user is not a member of this organization")
	}

	for _, role := range allowedRoles {
		if member.Role == role {
			return nil
		}
	}
	return apperrors.Forbidden("insufficient role for this action")
}
