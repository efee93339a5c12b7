package domain

import "time"

// Role is the console role carried in the JWT.
type Role string

const (
	RoleAdmin   Role = "admin"
	RolePartner Role = "partner"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RolePartner
}

// Operator models an authenticated actor of the console. Partner operators
// are bound to the account they may read.
type Operator struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	AccountID    string    `json:"account_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
