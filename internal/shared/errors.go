package shared

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrValidation indicates input rejected before any store mutation.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicateIdentity indicates the email address is already registered.
	ErrDuplicateIdentity = errors.New("email already registered")
	// ErrAdminAlreadyExists blocks first-admin setup once an admin role row exists.
	ErrAdminAlreadyExists = errors.New("admin already exists")
	// ErrUnauthorized indicates missing or invalid authentication.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates an authenticated caller without the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrStoreUnavailable indicates an infrastructural persistence failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// PartialProvisioningError reports a provisioning run that created the
// identity but failed on a later step. The identity id is carried so the
// orphan recovery path can find and repair the account later.
type PartialProvisioningError struct {
	IdentityID uuid.UUID
	Step       string
	Err        error
}

func (e *PartialProvisioningError) Error() string {
	return fmt.Sprintf("provisioning incomplete for identity %s at step %s: %v", e.IdentityID, e.Step, e.Err)
}

func (e *PartialProvisioningError) Unwrap() error {
	return e.Err
}

// UserSafeMessage returns a message safe to surface to end users.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "The submitted data is invalid."
	case errors.Is(err, ErrDuplicateIdentity):
		return "This email is already registered. Use the recovery option instead."
	case errors.Is(err, ErrAdminAlreadyExists):
		return "An administrator already exists. Additional admins cannot be created here."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrNotFound):
		return "The requested record was not found."
	default:
		return "Something went wrong. Please try again."
	}
}
