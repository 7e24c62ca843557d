package presence

import (
	"fmt"
)

// AuthError is returned when login did not succeed within the retry policy.
type AuthError struct {
	ClientID string
	Attempts int
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("Cannot connect to Discord. Make sure Discord desktop is open (%d attempts): %v",
		e.Attempts, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// PublishError is returned when the initial activity could not be published.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish activity: %v", e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
