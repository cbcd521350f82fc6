package repositories

import (
	"database/sql"

	"sstaudit/internal/platform/models"
)

type OrgRoleRepository struct {
	db *sql.DB
}

func NewOrgRoleRepository(db *sql.DB) *OrgRoleRepository {
	return &OrgRoleRepository{db: db}
}

func (r *OrgRoleRepository) Create(role *models.OrgRole) error {
	_, err := r.db.Exec(`
		INSERT INTO org_roles (id, organization_id, name, permissions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, role.ID, role.OrganizationID, role.Name, role.Permissions, role.CreatedAt, role.UpdatedAt)
	return err
}

func (r *OrgRoleRepository) GetByID(id string) (*models.OrgRole, error) {
	role := &models.OrgRole{}
	err := r.db.QueryRow(`
		SELECT id, organization_id, name, permissions, created_at, updated_at
		FROM org_roles WHERE id = ?
	`, id).Scan(&role.ID, &role.OrganizationID, &role.Name, &role.Permissions, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

func (r *OrgRoleRepository) GetByOrgAndName(orgID, name string) (*models.OrgRole, error) {
	role := &models.OrgRole{}
	err := r.db.QueryRow(`
		SELECT id, organization_id, name, permissions, created_at, updated_at
		FROM org_roles WHERE organization_id = ? AND name = ?
	`, orgID, name).Scan(&role.ID, &role.OrganizationID, &role.Name, &role.Permissions, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

func (r *OrgRoleRepository) ExistsByOrgAndName(orgID, name string) (bool, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(1) FROM org_roles WHERE organization_id = ? AND name = ?
	`, orgID, name).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *OrgRoleRepository) ListByOrg(orgID string) ([]*models.OrgRole, error) {
	rows, err := r.db.Query(`
		SELECT id, organization_id, name, permissions, created_at, updated_at
		FROM org_roles WHERE organization_id = ?
		ORDER BY created_at ASC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*models.OrgRole
	for rows.Next() {
		role := &models.OrgRole{}
		err := rows.Scan(&role.ID, &role.OrganizationID, &role.Name, &role.Permissions,
			&role.CreatedAt, &role.UpdatedAt)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *OrgRoleRepository) Update(role *models.OrgRole) error {
	_, err := r.db.Exec(`
		UPDATE org_roles SET name = ?, permissions = ?, updated_at = ? WHERE id = ?
	`, role.Name, role.Permissions, role.UpdatedAt, role.ID)
	return err
}

func (r *OrgRoleRepository) Delete(id string) error {
	_, err := r.db.Exec(`DELETE FROM org_roles WHERE id = ?`, id)
	return err
}
