package repositories

import (
	"database/sql"

	"sstaudit/internal/platform/models"
)

type MemberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

func (r *MemberRepository) Create(m *models.Member) error {
	_, err := r.db.Exec(`
		INSERT INTO members (id, organization_id, user_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.OrganizationID, m.UserID, m.Role, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *MemberRepository) CreateTx(tx *sql.Tx, m *models.Member) error {
	_, err := tx.Exec(`
		INSERT INTO members (id, organization_id, user_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.OrganizationID, m.UserID, m.Role, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *MemberRepository) GetByID(id string) (*models.Member, error) {
	m := &models.Member{}
	err := r.db.QueryRow(`
		SELECT id, organization_id, user_id, role, created_at, updated_at
		FROM members WHERE id = ?
	`, id).Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MemberRepository) GetByOrgAndUser(orgID, userID string) (*models.Member, error) {
	m := &models.Member{}
	err := r.db.QueryRow(`
		SELECT id, organization_id, user_id, role, created_at, updated_at
		FROM members WHERE organization_id = ? AND user_id = ?
	`, orgID, userID).Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// GetByOrgAndEmail resolves a member through the invitee's user email,
// case-insensitively.
func (r *MemberRepository) GetByOrgAndEmail(orgID, email string) (*models.Member, error) {
	m := &models.Member{}
	err := r.db.QueryRow(`
		SELECT m.id, m.organization_id, m.user_id, m.role, m.created_at, m.updated_at
		FROM members m JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = ? AND LOWER(u.email) = LOWER(?)
	`, orgID, email).Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *MemberRepository) ExistsByOrgAndUser(orgID, userID string) (bool, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(1) FROM members WHERE organization_id = ? AND user_id = ?
	`, orgID, userID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *MemberRepository) ListByOrg(orgID string, limit, offset int) ([]*models.Member, error) {
	rows, err := r.db.Query(`
		SELECT m.id, m.organization_id, m.user_id, m.role, m.created_at, m.updated_at,
		       u.name, u.email
		FROM members m JOIN users u ON u.id = m.user_id
		WHERE m.organization_id = ?
		ORDER BY m.created_at ASC
		LIMIT ? OFFSET ?
	`, orgID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		m := &models.Member{}
		err := rows.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role,
			&m.CreatedAt, &m.UpdatedAt, &m.UserName, &m.UserEmail)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepository) CountByOrg(orgID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(1) FROM members WHERE organization_id = ?
	`, orgID).Scan(&count)
	return count, err
}

// ListOrgsByUser returns the organizations the user belongs to.
func (r *MemberRepository) ListOrgsByUser(userID string) ([]*models.Organization, error) {
	rows, err := r.db.Query(`
		SELECT o.id, o.name, o.slug, o.logo_url, o.metadata, o.created_at, o.updated_at
		FROM organizations o JOIN members m ON m.organization_id = o.id
		WHERE m.user_id = ?
		ORDER BY o.created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orgs []*models.Organization
	for rows.Next() {
		o := &models.Organization{}
		err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.LogoURL, &o.Metadata, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (r *MemberRepository) UpdateRole(id, role string, updatedAt int64) error {
	_, err := r.db.Exec(`
		UPDATE members SET role = ?, updated_at = ? WHERE id = ?
	`, role, updatedAt, id)
	return err
}

func (r *MemberRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM members WHERE id = ?`, id)
	return err
}
