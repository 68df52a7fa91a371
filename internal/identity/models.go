package identity

import (
	"time"

	"github.com/google/uuid"
)

// Roles. The binary admin/user flag is the only role distinction the system
// supports.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Address is the user's postal address.
type Address struct {
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
}

// OTP is a pending one-time password. It is replaced wholesale on
// regeneration and cleared after a successful verification.
type OTP struct {
	Code      string
	ExpiresAt time.Time
}

// Matches reports whether candidate verifies against the pending code at the
// given instant. Pure check: callers mutate verification state, keeping this
// side-effect-free. Exactly at the expiry instant the code still verifies;
// one tick past it does not.
func (o *OTP) Matches(candidate string, now time.Time) bool {
	if o == nil || o.Code == "" {
		return false
	}
	if now.After(o.ExpiresAt) {
		return false
	}
	return o.Code == candidate
}

// User is an account record. The password hash and pending OTP never appear
// in any read path.
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	NationalID   string    `json:"nationalId"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone"`
	DateOfBirth  time.Time `json:"dateOfBirth"`
	Address      Address   `json:"address"`
	Verified     bool      `json:"isVerified"`
	Role         string    `json:"role"`
	OTP          *OTP      `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicProfile is the reduced projection returned by the national-id search,
// enough for a sharer to confirm the grantee.
type PublicProfile struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	NationalID string    `json:"nationalId"`
	Phone      string    `json:"phone"`
}

// Public returns the reduced projection of the user.
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		NationalID: u.NationalID,
		Phone:      u.Phone,
	}
}
