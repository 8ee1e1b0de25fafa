package entity

import "time"

// User is the staff member owning payment links. Account management lives in
// the auth service; this row is only read to attribute links.
type User struct {
	ID       string
	Email    string
	Name     string
	Role     string
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
