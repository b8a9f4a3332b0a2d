package signup

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProviderLocal tags users registered with local credentials. External
// identity sources use their own provider tag.
const ProviderLocal = "local"

// User is the persisted identity record. Email is stored lowercase and
// is case-insensitively unique within a provider; the migrations back
// that with a unique index on (provider, lower(email)).
type User struct {
	bun.BaseModel      `bun:"table:users,alias:usr"`
	ID                 uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName          string     `bun:"first_name,notnull" json:"firstName,omitempty"`
	LastName           string     `bun:"last_name,notnull" json:"lastName,omitempty"`
	Email              string     `bun:"email,notnull" json:"email,omitempty"`
	Phone              string     `bun:"phone_number" json:"phoneNumber,omitempty"`
	Provider           string     `bun:"provider,notnull" json:"provider,omitempty"`
	PasswordHash       string     `bun:"password_hash" json:"-"`
	Confirmed          bool       `bun:"confirmed" json:"confirmed"`
	Blocked            bool       `bun:"blocked" json:"blocked"`
	ConfirmationToken  string     `bun:"confirmation_token,nullzero" json:"-"`
	ResetPasswordToken string     `bun:"reset_password_token,nullzero" json:"-"`
	RoleID             uuid.UUID  `bun:"role_id,nullzero,type:uuid" json:"-"`
	Role               *Role      `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	CreatedAt          *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt          *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt          *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Sanitize returns a copy safe to hand across the system boundary:
// stored credentials and server-only tokens are dropped. Callers must
// never observe the hasher's output.
func (u *User) Sanitize() *User {
	if u == nil {
		return nil
	}

	clean := *u
	clean.PasswordHash = ""
	clean.ConfirmationToken = ""
	clean.ResetPasswordToken = ""
	return &clean
}

// Role is a concrete role record resolved from a symbolic type. Roles
// are looked up during registration, never created by it.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string    `bun:"name,notnull" json:"name,omitempty"`
	Type          string    `bun:"type,notnull,unique" json:"type,omitempty"`
	Description   string    `bun:"description" json:"description,omitempty"`
}

// Setting is a key/value row of the settings store; Value holds JSON.
type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:cfg"`
	Key           string     `bun:"key,pk" json:"key"`
	Value         []byte     `bun:"value,notnull" json:"value"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}
