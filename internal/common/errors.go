package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound              = errors.New("resource not found")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrForbidden             = errors.New("admin access required")
	ErrBadRequest            = errors.New("bad request")
	ErrValidation            = errors.New("validation failed")
	ErrDuplicateIdentity     = errors.New("username or email already exists")
	ErrNoFieldsToUpdate      = errors.New("no fields to update")
	ErrSelfDeletion          = errors.New("cannot delete your own account")
	ErrTooManyAttempts       = errors.New("too many login attempts, try again later")
	ErrInternalServer        = errors.New("internal server error")
)

// AccessDeniedError records why a policy check failed. It unwraps to
// ErrNotFound so callers outside the service layer cannot tell a denied
// resource from a missing one.
type AccessDeniedError struct {
	Resource string
	ID       int64
	Reason   string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("%s %d: access denied (%s)", e.Resource, e.ID, e.Reason)
}

func (e *AccessDeniedError) Unwrap() error {
	return ErrNotFound
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrInvalidOrExpiredToken),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrDuplicateIdentity),
		errors.Is(err, ErrNoFieldsToUpdate),
		errors.Is(err, ErrSelfDeletion):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooManyAttempts):
		return http.StatusTooManyRequests
	}

	// A unique violation that escaped the repository is still a duplicate.
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == UniqueViolationCode {
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}

// PublicMessage returns the text that is safe to send to a client for err.
// Validation errors carry their own detail; everything else uses a fixed
// message per kind so internal error text never leaves the process.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrInvalidOrExpiredToken):
		return ErrUnauthenticated.Error()
	case errors.Is(err, ErrInvalidCredentials):
		return ErrInvalidCredentials.Error()
	case errors.Is(err, ErrForbidden):
		return ErrForbidden.Error()
	case errors.Is(err, ErrDuplicateIdentity):
		return ErrDuplicateIdentity.Error()
	case errors.Is(err, ErrNoFieldsToUpdate):
		return ErrNoFieldsToUpdate.Error()
	case errors.Is(err, ErrSelfDeletion):
		return ErrSelfDeletion.Error()
	case errors.Is(err, ErrTooManyAttempts):
		return ErrTooManyAttempts.Error()
	case errors.Is(err, ErrValidation), errors.Is(err, ErrBadRequest):
		return err.Error()
	}
	if HTTPStatusFromError(err) == http.StatusBadRequest {
		return ErrDuplicateIdentity.Error()
	}
	return ErrInternalServer.Error()
}

const (
	UniqueViolationCode     = "23505"
	ForeignKeyViolationCode = "23503"
)

// IsUniqueViolation reports whether err is a Postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == UniqueViolationCode
}

// IsForeignKeyViolation reports whether err is a Postgres foreign key violation,
// i.e. a referenced row no longer exists.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == ForeignKeyViolationCode
}

// Validationf builds an ErrValidation with a client-facing detail message.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
