package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/storefront-orders/internal/model"
)

// Sentinel errors returned by the services. Handlers map them onto HTTP
// statuses with errors.Is; wrapped messages carry the detail.
var (
	ErrValidation         = errors.New("validation failed")
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrConflict           = errors.New("order was modified concurrently")
	ErrNotPayable         = errors.New("order is not awaiting payment")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
)

// invalid wraps ErrValidation with a field-level message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// checkLengths reports the first value too long for its column.
func checkLengths(fields ...model.Field) error {
	if f, bad := model.Overlong(fields...); bad {
		return invalid("%s must be at most %d characters", f.Name, f.Max)
	}
	return nil
}
