package models

// Built-in membership roles. Any other role value names a dynamic role
// defined by the organization.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Invitation statuses. PENDING is the only non-terminal state.
const (
	InviteStatusPending  = "PENDING"
	InviteStatusAccepted = "ACCEPTED"
	InviteStatusRejected = "REJECTED"
	InviteStatusCanceled = "CANCELED"
)

type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Banned       bool   `json:"banned"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// Session is an opaque-token session persisted in the database. The token
// is a bearer secret with no embedded claims; validity always requires a
// server-side lookup.
type Session struct {
	ID              string  `json:"id"`
	Token           string  `json:"-"`
	UserID          string  `json:"user_id"`
	ActiveOrgID     *string `json:"active_org_id,omitempty"`
	IPAddress       string  `json:"ip_address,omitempty"`
	UserAgent       string  `json:"user_agent,omitempty"`
	ImpersonatedBy  *string `json:"impersonated_by,omitempty"`
	CreatedAt       int64   `json:"created_at"`
	UpdatedAt       int64   `json:"updated_at"`
	ExpiresAt       int64   `json:"expires_at"`
}

type Organization struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	LogoURL   string `json:"logo_url,omitempty"`
	Metadata  string `json:"metadata,omitempty"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type Member struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id"`
	Role           string `json:"role"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`

	// Joined from users when listing members.
	UserName  string `json:"user_name,omitempty"`
	UserEmail string `json:"user_email,omitempty"`
}

type Invitation struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	InviterID      string `json:"inviter_id"`
	ExpiresAt      int64  `json:"expires_at"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

// OrgRole is an organization-defined dynamic role. Permissions holds a
// JSON document of the form {"resource": ["action", ...]}.
type OrgRole struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Permissions    string `json:"permissions"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}
