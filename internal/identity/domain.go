package identity

import (
	"time"

	"github.com/google/uuid"
)

// Identity is an authentication account record. It owns only credentials
// and signup metadata; display attributes live on the profile.
type Identity struct {
	ID        uuid.UUID
	Email     string
	Metadata  Metadata
	CreatedAt time.Time
}

// Metadata carries attributes captured at signup, before a profile exists.
type Metadata struct {
	FullName string `json:"full_name,omitempty"`
}
