package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/gamezxlan/ley-en-mano-backend/internal/shared/id"
)

// User is the minimal account record the billing engine needs: a stable
// local identity, an email for checkout prefill, and the provider customer
// reference once one exists.
type User struct {
	id                 uint
	sid                string
	email              string
	providerCustomerID string
	createdAt          time.Time
	updatedAt          time.Time
}

// NewUser creates a user from a normalized email address.
func NewUser(email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}

	now := time.Now().UTC()
	return &User{
		sid:       id.MustGenerateWithPrefix(id.PrefixUser, id.DefaultLength),
		email:     email,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct rebuilds a user from persistence.
func Reconstruct(uid uint, sid, email, providerCustomerID string, createdAt, updatedAt time.Time) (*User, error) {
	if uid == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	return &User{
		id:                 uid,
		sid:                sid,
		email:              email,
		providerCustomerID: providerCustomerID,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}, nil
}

func (u *User) ID() uint                   { return u.id }
func (u *User) SID() string                { return u.sid }
func (u *User) Email() string              { return u.email }
func (u *User) ProviderCustomerID() string { return u.providerCustomerID }
func (u *User) CreatedAt() time.Time       { return u.createdAt }
func (u *User) UpdatedAt() time.Time       { return u.updatedAt }

// SetID sets the user ID (only for persistence layer use)
func (u *User) SetID(newID uint) error {
	if u.id != 0 {
		return fmt.Errorf("user ID is already set")
	}
	if newID == 0 {
		return fmt.Errorf("user ID cannot be zero")
	}
	u.id = newID
	return nil
}

// LinkProviderCustomer stores the provider customer reference. Overwriting
// is allowed: a stale customer ID gets recreated when the provider no
// longer recognizes it.
func (u *User) LinkProviderCustomer(customerID string) {
	u.providerCustomerID = customerID
	u.updatedAt = time.Now().UTC()
}
