package provision

import (
	"time"

	"github.com/google/uuid"

	"github.com/pulseboard/pulseboard/internal/identity"
	"github.com/pulseboard/pulseboard/internal/permission"
)

// Profile is the display record paired one-to-one with an identity. Its
// absence is what defines an orphaned identity.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChartPermissionInput names one chart grant in a provisioning request. The
// owning page always comes from the chart catalog, not from the caller.
type ChartPermissionInput struct {
	Chart   permission.ChartType `json:"chart_type"`
	CanView bool                 `json:"can_view"`
}

// Input describes one complete account to provision.
type Input struct {
	Email            string                   `json:"email" validate:"required,email"`
	Password         string                   `json:"password" validate:"required,min=6"`
	FullName         string                   `json:"full_name" validate:"required"`
	Username         string                   `json:"username"`
	Role             permission.Role          `json:"role"`
	PagePermissions  map[permission.Page]bool `json:"page_permissions"`
	ChartPermissions []ChartPermissionInput   `json:"chart_permissions"`
}

// FirstAdminInput is the reduced input accepted by first-admin mode; role
// and grants are forced.
type FirstAdminInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	FullName string `json:"full_name" validate:"required"`
}

// Result reports the outcome of provisioning or first-admin setup.
type Result struct {
	Identity       *identity.Identity
	Recovered      bool
	RecoveredCount int
	Warning        string
}

// Account is a provisioned account as shown on the users admin screen.
type Account struct {
	Profile    Profile                `json:"profile"`
	Role       permission.Role        `json:"role"`
	PageGrants []permission.PageGrant `json:"page_grants"`
}

// Provisioning step names recorded on partial failures.
const (
	StepProfile     = "profile"
	StepRole        = "role"
	StepPageGrants  = "page_grants"
	StepChartGrants = "chart_grants"
)
