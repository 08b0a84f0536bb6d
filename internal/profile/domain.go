package profile

import (
	"time"

	"github.com/google/uuid"
)

// View is the caller's own profile as returned to the settings screen.
type View struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Update carries the editable profile attributes.
type Update struct {
	FullName  string `json:"full_name" validate:"required"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}
