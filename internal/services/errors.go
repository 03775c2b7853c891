package services

import (
	"errors"
	"fmt"
)

// Flow failures. Callers match them with errors.Is; the message of each is
// what ends up in the {success:false,error} response.
var (
	ErrUnauthenticated    = errors.New("you must be signed in")
	ErrProfileMissing     = errors.New("profile not found for the signed-in user")
	ErrNotOwner           = errors.New("only the poll owner can do that")
	ErrNotFound           = errors.New("poll not found")
	ErrPollInactive       = errors.New("poll is not active")
	ErrPollExpired        = errors.New("poll has expired")
	ErrInvalidOptions     = errors.New("invalid options selected")
	ErrAlreadyVoted       = errors.New("you have already voted on this poll")
	ErrWriteFailed        = errors.New("failed to save")
	ErrOptionsWriteFailed = errors.New("failed to save poll options")
	ErrValidation         = errors.New("invalid input")
	ErrShareNotFound      = errors.New("share link not found")

	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func writeFailed(err error) error {
	return fmt.Errorf("%w: %v", ErrWriteFailed, err)
}
