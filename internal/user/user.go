package user

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Account is a login credential record. It is independent of the health card
// that shares its email address.
type Account struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"userType"`
	Password  string    `json:"password,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
