package domain

import "time"

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleWorker   Role = "WORKER"
	RoleAdmin    Role = "ADMIN"
)

type User struct {
	ID              int32     `json:"id"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phone_number"`
	PasswordHash    string    `json:"-"`
	Name            string    `json:"name"`
	Role            Role      `json:"role"`
	Skills          string    `json:"skills"` // free text, e.g. "plumbing, electrical"
	Rating          float64   `json:"rating"`
	ExperienceYears int32     `json:"experience_years"`
	IsAvailable     bool      `json:"is_available"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (u *User) IsWorker() bool {
	return u.Role == RoleWorker
}
