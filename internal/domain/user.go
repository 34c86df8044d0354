package domain

import "time"

// User represents a registered user. Credential hashes never leave the
// process in JSON.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Role             Role      `json:"role"`
	PasswordHash     string    `json:"-"`
	RefreshTokenHash *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Principal returns the identity used for authorization decisions.
func (u *User) Principal() Principal {
	return Principal{ID: u.ID, Email: u.Email, Role: u.Role}
}

// UserFields is a partial update of a user's profile. Nil fields are left
// unchanged.
type UserFields struct {
	FirstName *string
	LastName  *string
	Role      *Role
}

// Empty reports whether the update touches no field.
func (f UserFields) Empty() bool {
	return f.FirstName == nil && f.LastName == nil && f.Role == nil
}

// Principal is the authenticated actor of a request.
type Principal struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResult is returned by signup and login.
type AuthResult struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// RefreshResult is returned by a successful refresh.
type RefreshResult struct {
	UserID int64     `json:"id"`
	Tokens TokenPair `json:"tokens"`
}
