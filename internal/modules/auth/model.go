// README: Email one-time-code login and bearer sessions.
package auth

import "errors"

var (
	ErrDomainNotAllowed = errors.New("email domain not allowed")
	ErrRateLimited      = errors.New("too many code requests")
	ErrInvalidCode      = errors.New("invalid or expired code")
	ErrUnauthenticated  = errors.New("unauthenticated")
)

const (
	codeDigits  = 6
	maxAttempts = 5
)

// Session is returned to the client after a successful verification.
type Session struct {
	Token string `json:"token"`
	Email string `json:"email"`
}
