package staff

import (
	"time"

	"github.com/google/uuid"
)

// Staff roles. Admin is recognized by the auth layer as an implicit
// superset of the others.
const (
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
	RoleAdmin        = "admin"
)

// Staff maps to the staff table. Specialty is only meaningful for
// doctors.
type Staff struct {
	ID        uuid.UUID `db:"id" json:"id"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Role      string    `db:"role" json:"role"`
	Specialty *string   `db:"specialty" json:"specialty,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

func (s *Staff) FullName() string {
	return s.FirstName + " " + s.LastName
}

// ValidRole reports whether role is one of the supported staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleDoctor, RoleNurse, RoleReceptionist, RoleAdmin:
		return true
	}
	return false
}
