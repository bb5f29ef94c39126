package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/shared"
)

// Notifier is told after every applied mutation so state can be persisted.
type Notifier interface {
	StateChanged(ctx context.Context)
}

// Service wraps authentication business rules. Credentials live in postgres;
// the roster itself lives on the ledger.
type Service struct {
	repo     Repository
	ledger   *ledger.Ledger
	notifier Notifier
}

// NewService constructs a new Service. notifier may be nil.
func NewService(repo Repository, l *ledger.Ledger, notifier Notifier) *Service {
	return &Service{repo: repo, ledger: l, notifier: notifier}
}

// Signup registers a roster user and stores their credential. When the
// credential cannot be stored the registration is backed out so the email
// stays available for a retry.
func (s *Service) Signup(ctx context.Context, name, email, password string) (ledger.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return ledger.User{}, fmt.Errorf("auth: hash password: %w", err)
	}

	outcome := s.ledger.Apply(ledger.RegisterUser{Name: name, Email: email, Role: ledger.RoleUser})
	if outcome.Status != ledger.Applied {
		return ledger.User{}, fmt.Errorf("%w: %s", shared.ErrInvalidSignup, outcome.Reason)
	}

	cred := Credential{
		UserID:       outcome.ID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateCredential(ctx, cred); err != nil {
		s.ledger.Apply(ledger.RemoveUser{UserID: outcome.ID})
		return ledger.User{}, fmt.Errorf("auth: store credential: %w", err)
	}

	if s.notifier != nil {
		s.notifier.StateChanged(ctx)
	}
	user, _ := s.ledger.UserByID(outcome.ID)
	return user, nil
}

// Authenticate validates email/password credentials against the stored hash
// and the roster's access flag.
func (s *Service) Authenticate(ctx context.Context, email, password string) (ledger.User, error) {
	cred, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return ledger.User{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return ledger.User{}, shared.ErrInvalidCredentials
	}
	user, ok := s.ledger.UserByID(cred.UserID)
	if !ok {
		return ledger.User{}, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return ledger.User{}, shared.ErrAccessDisabled
	}
	return user, nil
}

// ResolveUser returns the roster user for a session identity, enforcing the
// access flag on every request so a toggle takes effect immediately.
func (s *Service) ResolveUser(userID string) (ledger.User, error) {
	user, ok := s.ledger.UserByID(userID)
	if !ok {
		return ledger.User{}, shared.ErrNotFound
	}
	if !user.IsActive {
		return ledger.User{}, shared.ErrAccessDisabled
	}
	return user, nil
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

// IsAccessDisabled reports whether err is the disabled-account sentinel.
func IsAccessDisabled(err error) bool {
	return errors.Is(err, shared.ErrAccessDisabled)
}
