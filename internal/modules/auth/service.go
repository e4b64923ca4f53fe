// README: Auth service: request a code, verify it, resolve sessions.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// sendWindow is the span CodeRatePerMinute applies to.
const sendWindow = time.Minute

type Config struct {
	AllowedDomain     string
	CodeTTL           time.Duration
	SessionTTL        time.Duration
	CodeRatePerMinute int
}

type Service struct {
	store  *Store
	mailer Mailer
	cfg    Config
	logger *slog.Logger
}

func NewService(store *Store, mailer Mailer, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CodeRatePerMinute <= 0 {
		cfg.CodeRatePerMinute = 1
	}
	cfg.AllowedDomain = strings.ToLower(strings.TrimPrefix(cfg.AllowedDomain, "@"))
	return &Service{
		store:  store,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
}

// RequestCode emails a fresh one-time code to an address in the allowed domain.
func (s *Service) RequestCode(ctx context.Context, email string) error {
	email, err := s.checkEmail(email)
	if err != nil {
		return err
	}
	sends, err := s.store.CountSend(ctx, email, sendWindow)
	if err != nil {
		return err
	}
	if sends > int64(s.cfg.CodeRatePerMinute) {
		return ErrRateLimited
	}

	code, err := newCode()
	if err != nil {
		return err
	}
	if err := s.store.SaveCode(ctx, email, code, s.cfg.CodeTTL); err != nil {
		return fmt.Errorf("save code: %w", err)
	}

	body := fmt.Sprintf("Your MaroonLine login code is %s. It expires in %d minutes.",
		code, int(s.cfg.CodeTTL.Minutes()))
	if err := s.mailer.Send(ctx, email, "Your MaroonLine login code", body); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "login code sent", "email", email)
	return nil
}

// Verify exchanges a pending code for a session. A code works once.
func (s *Service) Verify(ctx context.Context, email, code string) (Session, error) {
	email, err := s.checkEmail(email)
	if err != nil {
		return Session{}, err
	}
	code = strings.TrimSpace(code)

	pending, err := s.store.PendingCode(ctx, email)
	if err != nil {
		return Session{}, err
	}
	if pending == "" || subtle.ConstantTimeCompare([]byte(pending), []byte(code)) != 1 {
		if pending != "" {
			if err := s.store.RecordFailure(ctx, email, maxAttempts, s.cfg.CodeTTL); err != nil {
				s.logger.WarnContext(ctx, "record failed attempt", "email", email, "error", err)
			}
		}
		return Session{}, ErrInvalidCode
	}

	ok, err := s.store.ConsumeCode(ctx, email, pending)
	if err != nil {
		return Session{}, err
	}
	if !ok {
		return Session{}, ErrInvalidCode
	}

	token := uuid.NewString()
	if err := s.store.SaveSession(ctx, token, email, s.cfg.SessionTTL); err != nil {
		return Session{}, fmt.Errorf("save session: %w", err)
	}
	s.logger.InfoContext(ctx, "session issued", "email", email)
	return Session{Token: token, Email: email}, nil
}

// Resolve maps a bearer token to the signed-in email.
func (s *Service) Resolve(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	return s.store.SessionEmail(ctx, token)
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

func (s *Service) checkEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at <= 0 || email[at+1:] != s.cfg.AllowedDomain {
		return "", fmt.Errorf("%w: use your @%s address", ErrDomainNotAllowed, s.cfg.AllowedDomain)
	}
	return email, nil
}

func newCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
