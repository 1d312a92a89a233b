package core

import (
	"context"
	"time"

	"churchledger/internal/auth"
	"churchledger/internal/events"
	"churchledger/pkg/domain"
)

// RegisterUser creates a login account with a hashed password.
func (s *Service) RegisterUser(ctx context.Context, reg auth.Registration) (UserAccount, Result, error) {
	reg = reg.Normalize()
	if err := reg.Validate(); err != nil {
		return UserAccount{}, Result{}, err
	}
	// Hash outside the transaction; bcrypt is slow and the store lock is global.
	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return UserAccount{}, Result{}, err
	}
	var created UserAccount
	res, err := s.run(ctx, "register_user", func(tx Transaction) error {
		if _, exists := tx.FindUser(reg.Username); exists {
			return domain.Invalid("username", "Username already exists")
		}
		var err error
		created, err = tx.CreateUser(UserAccount{
			Username:     reg.Username,
			PasswordHash: hash,
			Email:        reg.Email,
			RegisteredAt: domain.CalendarDate(s.clock.Now()),
		})
		return err
	})
	if err != nil {
		return UserAccount{}, res, err
	}
	s.publish(ctx, events.UserRegistered, "", created.Username)
	return created, res, nil
}

// Authenticate checks a username and password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (UserAccount, error) {
	start := time.Now()
	user, ok := s.store.GetUser(username)
	if !ok || !s.hasher.Verify(user.PasswordHash, password) {
		s.logger.Info("login rejected", "username", username)
		s.observe(ctx, "authenticate", start, domain.ErrInvalidCredentials)
		return UserAccount{}, domain.ErrInvalidCredentials
	}
	s.observe(ctx, "authenticate", start, nil)
	return user, nil
}

// HasUsers reports whether any account exists.
func (s *Service) HasUsers(ctx context.Context) (bool, error) {
	var found bool
	err := s.store.View(ctx, func(v TransactionView) error {
		found = len(v.ListUsers()) > 0
		return nil
	})
	return found, err
}
