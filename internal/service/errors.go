package service

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrAuthentication          = errors.New("authentication failed")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrValidation              = errors.New("validation failed")
	ErrNotFound                = errors.New("resource not found")
	ErrRetryable               = errors.New("temporarily unavailable, retry")
)

// Error carries a caller-facing message and a kind from the list above.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvitationUsed           = &Error{Kind: ErrValidation, Message: "invitation has already been used"}
	ErrInvitationExpired        = &Error{Kind: ErrValidation, Message: "invitation has expired"}
	ErrEmailMismatch            = &Error{Kind: ErrValidation, Message: "email does not match the invitation"}
	ErrInvalidTemporaryPassword = &Error{Kind: ErrAuthentication, Message: "invalid temporary password"}
	ErrAlreadyMember            = &Error{Kind: ErrValidation, Message: "user is already a member of this organization"}
	ErrDomainNotAllowed         = &Error{Kind: ErrValidation, Message: "email domain is not allowed for this organization"}
	ErrInvalidCredentials       = &Error{Kind: ErrAuthentication, Message: "invalid credentials"}
	ErrInvalidToken             = &Error{Kind: ErrAuthentication, Message: "invalid or expired token"}
	ErrNoOrganizationContext    = &Error{Kind: ErrInsufficientPermissions, Message: "no organization context"}
)
