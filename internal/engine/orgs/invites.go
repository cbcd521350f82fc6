package orgs

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "sstaudit/internal/pkg/errors"
	"sstaudit/internal/pkg/validator"
	"sstaudit/internal/platform/models"
)

type InviteInput struct {
	Email  string
	Role   string
	Resend bool
}

// InviteMember creates a pending invitation, or, when Resend is set and a
// pending one already exists for the email, extends its expiry in place.
// Requires OWNER or ADMIN.
func (s *Service) InviteMember(orgID string, input InviteInput, inviterID string) (*models.Invitation, error) {
	if _, err := s.resolveOrg(OrgRef{ID: orgID}); err != nil {
		return nil, err
	}

	if err := s.Authorize(orgID, inviterID, models.RoleOwner, models.RoleAdmin); err != nil {
		return nil, err
	}

	if err := validator.ValidateEmail(input.Email); err != nil {
		return nil, apperrors.BusinessRule(err.Error())
	}
	email := validator.NormalizeEmail(input.Email)

	role := input.Role
	if role == "" {
		role = models.RoleMember
	}
	if err := s.validateRoleValue(orgID, role); err != nil {
		return nil, err
	}

	existingMember, err := s.members.GetByOrgAndEmail(orgID, email)
	if err != nil {
		return nil, err
	}
	if existingMember != nil {
		return nil, apperrors.BusinessRule("user is already a member of this organization")
	}

	now := time.Now()
	pending, err := s.invites.GetPendingByOrgAndEmail(orgID, email)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		if !input.Resend {
			return nil, apperrors.Conflict("a pending invitation already exists for this email")
		}
		pending.ExpiresAt = now.Add(s.inviteTTL).Unix()
		pending.UpdatedAt = now.Unix()
		if err := s.invites.UpdateExpiry(pending.ID, pending.ExpiresAt, pending.UpdatedAt); err != nil {
			return nil, err
		}
		log.Info().Str("invite_id", pending.ID).Str("org_id", orgID).Msg("invitation resent")
		return pending, nil
	}

	invite := &models.Invitation{
		ID:             "inv_" + uuid.NewString(),
		OrganizationID: orgID,
		Email:          email,
		Role:           role,
		Status:         models.InviteStatusPending,
		InviterID:      inviterID,
		ExpiresAt:      now.Add(s.inviteTTL).Unix(),
		CreatedAt:      now.Unix(),
		UpdatedAt:      now.Unix(),
	}
	if err := s.invites.Create(invite); err != nil {
		return nil, err
	}
	log.Info().Str("invite_id", invite.ID).Str("org_id", orgID).Str("email", email).
		Msg("invitation created")
	return invite, nil
}

// AcceptInvite converts a pending, unexpired invitation into a
// membership. The authenticated user's email must match the invitee
// email case-insensitively. Membership creation and the status flip are
// one transaction; the unique (organization, user) constraint backstops
// concurrent accepts.
func (s *Service) AcceptInvite(inviteID, userID string) (*models.Member, error) {
	invite, user, err := s.inviteForUser(inviteID, userID)
	if err != nil {
		return nil, err
	}

	if invite.Status != models.InviteStatusPending {
		return nil, apperrors.Conflict("invitation is no longer pending")
	}

	now := time.Now().Unix()
	if invite.ExpiresAt < now {
		return nil, apperrors.BusinessRule("invitation has expired")
	}

	exists, err := s.members.ExistsByOrgAndUser(invite.OrganizationID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.BusinessRule("you are already a member of this organization")
	}

	member := &models.Member{
		ID:             "mem_" + uuid.NewString(),
		OrganizationID: invite.OrganizationID,
		UserID:         user.ID,
		Role:           invite.Role,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.orgs.BeginTx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.members.CreateTx(tx, member); err != nil {
		return nil, err
	}
	if err := s.invites.UpdateStatusTx(tx, invite.ID, models.InviteStatusAccepted, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().Str("invite_id", invite.ID).Str("member_id", member.ID).
		Str("org_id", invite.OrganizationID).Msg("invitation accepted")
	return member, nil
}

// RejectInvite flips a pending invitation to REJECTED. Same identity
// guard as Accept.
func (s *Service) RejectInvite(inviteID, userID string) error {
	invite, _, err := s.inviteForUser(inviteID, userID)
	if err != nil {
		return err
	}

	if invite.Status != models.InviteStatusPending {
		return apperrors.Conflict("invitation is no longer pending")
	}

	return s.invites.UpdateStatus(invite.ID, models.InviteStatusRejected, time.Now().Unix())
}

// CancelInvite flips a pending invitation to CANCELED. Requires OWNER or
// ADMIN of the inviting organization.
func (s *Service) CancelInvite(inviteID, actorID string) error {
	invite, err := s.invites.GetByID(inviteID)
	if err != nil {
		return err
	}
	if invite == nil {
		return apperrors.NotFound("Invitation", "id", inviteID)
	}

	if err := s.Authorize(invite.OrganizationID, actorID, models.RoleOwner, models.RoleAdmin); err != nil {
		return err
	}

	if invite.Status != models.InviteStatusPending {
		return apperrors.Conflict("invitation is no longer pending")
	}

	return s.invites.UpdateStatus(invite.ID, models.InviteStatusCanceled, time.Now().Unix())
}

// GetInvite returns an invitation by id.
func (s *Service) GetInvite(inviteID string) (*models.Invitation, error) {
	invite, err := s.invites.GetByID(inviteID)
	if err != nil {
		return nil, err
	}
	if invite == nil {
		return nil, apperrors.NotFound("Invitation", "id", inviteID)
	}
	return invite, nil
}

// ListInvites returns all invitations of an organization. Any member may
// read them.
func (s *Service) ListInvites(orgID, userID string) ([]*models.Invitation, error) {
	if err := s.requireMembership(orgID, userID); err != nil {
		return nil, err
	}
	return s.invites.ListByOrg(orgID)
}

// ListUserInvites returns the caller's own pending, unexpired invitations.
func (s *Service) ListUserInvites(email string) ([]*models.Invitation, error) {
	return s.invites.ListPendingByEmail(email, time.Now().Unix())
}

// inviteForUser loads the invitation and verifies it addresses the
// authenticated user's email.
func (s *Service) inviteForUser(inviteID, userID string) (*models.Invitation, *models.User, error) {
	invite, err := s.invites.GetByID(inviteID)
	if err != nil {
		return nil, nil, err
	}
	if invite == nil {
		return nil, nil, apperrors.NotFound("Invitation", "id", inviteID)
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, apperrors.NotFound("User", "id", userID)
	}

	if !strings.EqualFold(invite.Email, user.Email) {
		return nil, nil, apperrors.Unauthorized("this invitation does not belong to you")
	}
	return invite, user, nil
}
