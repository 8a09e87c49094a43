package domain

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account. PasswordHash never leaves the process.
type User struct {
	ID             string    `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	Role           string    `json:"role,omitempty" db:"role"`
	ProfilePicture string    `json:"profilePicture,omitempty" db:"profile_picture"`
	Bio            string    `json:"bio,omitempty" db:"bio"`
	IsActive       bool      `json:"isActive" db:"is_active"`
	JoinDate       time.Time `json:"joinDate" db:"join_date"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// PublicProfile hides the e-mail address and role from other users.
func (u *User) PublicProfile() *User {
	return &User{
		ID:             u.ID,
		Username:       u.Username,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
		IsActive:       u.IsActive,
		JoinDate:       u.JoinDate,
		UpdatedAt:      u.UpdatedAt,
	}
}

// UserProfile is the response of GET /users/{id}.
type UserProfile struct {
	User           *User `json:"user"`
	ReviewCount    int   `json:"reviewCount"`
	WatchlistCount int   `json:"watchlistCount"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// UpdateProfileRequest is the body of PUT /auth/me. Password changes are not accepted here.
type UpdateProfileRequest struct {
	Username       *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email"`
	Bio            *string `json:"bio,omitempty" validate:"omitempty,max=500"`
	ProfilePicture *string `json:"profilePicture,omitempty" validate:"omitempty,url"`
}
