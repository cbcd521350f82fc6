package repositories

import (
	"database/sql"

	"sstaudit/internal/platform/models"
)

type InviteRepository struct {
	db *sql.DB
}

func NewInviteRepository(db *sql.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

const inviteColumns = `id, organization_id, email, role, status, inviter_id, expires_at, created_at, updated_at`

func scanInvite(row interface{ Scan(...interface{}) error }) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.Email, &inv.Role, &inv.Status,
		&inv.InviterID, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (r *InviteRepository) Create(inv *models.Invitation) error {
	_, err := r.db.Exec(`
		INSERT INTO invitations (`+inviteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, inv.ID, inv.OrganizationID, inv.Email, inv.Role, inv.Status,
		inv.InviterID, inv.ExpiresAt, inv.CreatedAt, inv.UpdatedAt)
	return err
}

func (r *InviteRepository) GetByID(id string) (*models.Invitation, error) {
	return scanInvite(r.db.QueryRow(`
		SELECT `+inviteColumns+` FROM invitations WHERE id = ?
	`, id))
}

func (r *InviteRepository) GetPendingByOrgAndEmail(orgID, email string) (*models.Invitation, error) {
	return scanInvite(r.db.QueryRow(`
		SELECT `+inviteColumns+` FROM invitations
		WHERE organization_id = ? AND LOWER(email) = LOWER(?) AND status = ?
	`, orgID, email, models.InviteStatusPending))
}

func (r *InviteRepository) listQuery(query string, args ...interface{}) ([]*models.Invitation, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invites []*models.Invitation
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}

func (r *InviteRepository) ListByOrg(orgID string) ([]*models.Invitation, error) {
	return r.listQuery(`
		SELECT `+inviteColumns+` FROM invitations
		WHERE organization_id = ?
		ORDER BY created_at DESC
	`, orgID)
}

func (r *InviteRepository) ListPendingByOrg(orgID string) ([]*models.Invitation, error) {
	return r.listQuery(`
		SELECT `+inviteColumns+` FROM invitations
		WHERE organization_id = ? AND status = ?
		ORDER BY created_at DESC
	`, orgID, models.InviteStatusPending)
}

// ListPendingByEmail returns the still-valid pending invitations for an
// invitee email, across organizations.
func (r *InviteRepository) ListPendingByEmail(email string, now int64) ([]*models.Invitation, error) {
	return r.listQuery(`
		SELECT `+inviteColumns+` FROM invitations
		WHERE LOWER(email) = LOWER(?) AND status = ? AND expires_at > ?
		ORDER BY created_at DESC
	`, email, models.InviteStatusPending, now)
}

func (r *InviteRepository) UpdateStatus(id, status string, updatedAt int64) error {
	_, err := r.db.Exec(`
		UPDATE invitations SET status = ?, updated_at = ? WHERE id = ?
	`, status, updatedAt, id)
	return err
}

func (r *InviteRepository) UpdateStatusTx(tx *sql.Tx, id, status string, updatedAt int64) error {
	_, err := tx.Exec(`
		UPDATE invitations SET status = ?, updated_at = ? WHERE id = ?
	`, status, updatedAt, id)
	return err
}

// UpdateExpiry implements resend: the pending state is untouched, only
// the expiry window moves.
func (r *InviteRepository) UpdateExpiry(id string, expiresAt, updatedAt int64) error {
	_, err := r.db.Exec(`
		UPDATE invitations SET expires_at = ?, updated_at = ? WHERE id = ?
	`, expiresAt, updatedAt, id)
	return err
}
