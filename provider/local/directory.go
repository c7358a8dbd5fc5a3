package local

import (
	"context"
	"regexp"
	"strings"

	authsync "github.com/goliatone/go-authsync"
	"github.com/goliatone/go-authsync/repository"
	goerrors "github.com/goliatone/go-errors"
	repo "github.com/goliatone/go-repository-bun"
	"golang.org/x/crypto/bcrypt"
)

// MaxLoginAttempts is the number of failed attempts allowed in the cool
// down period.
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which failed attempts are counted.
var CoolDownPeriod = "24h"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Directory holds the accounts shared by every local provider session.
type Directory struct {
	accounts  repository.Accounts
	cost      int
	minLength int
	logger    authsync.Logger
}

func NewDirectory(accounts repository.Accounts) *Directory {
	return &Directory{
		accounts:  accounts,
		cost:      bcrypt.DefaultCost,
		minLength: authsync.MinPasswordLength,
		logger:    authsync.DefaultLogger(),
	}
}

func (d *Directory) WithLogger(l authsync.Logger) *Directory {
	if l != nil {
		d.logger = l
	}
	return d
}

// WithHashCost sets the bcrypt cost used for new passwords.
func (d *Directory) WithHashCost(cost int) *Directory {
	d.cost = cost
	return d
}

// Register creates an account. Rejections carry the identity provider codes.
func (d *Directory) Register(ctx context.Context, email, password string) (*repository.Account, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return nil, authsync.NewProviderError(authsync.CodeInvalidEmail, "The email address is badly formatted.")
	}

	if len(password) < d.minLength {
		return nil, authsync.NewProviderError(authsync.CodeWeakPassword, "Password should be at least 6 characters")
	}

	if _, err := d.accounts.GetByIdentifier(ctx, email); err == nil {
		return nil, authsync.NewProviderError(authsync.CodeEmailAlreadyInUse, "The email address is already in use by another account.")
	} else if !repo.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up account")
	}

	hash, err := HashPassword(password, d.cost)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	account, err := d.accounts.Register(ctx, &repository.Account{
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register account").
			WithMetadata(map[string]any{"email": email})
	}

	d.logger.Info("account registered", "uid", account.ID.String(), "email", email)

	return account, nil
}

// Verify checks credentials, tracking failed attempts.
func (d *Directory) Verify(ctx context.Context, email, password string) (*repository.Account, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return nil, authsync.NewProviderError(authsync.CodeInvalidEmail, "The email address is badly formatted.")
	}

	account, err := d.accounts.GetByIdentifier(ctx, email)
	if err != nil {
		if repo.IsRecordNotFound(err) {
			return nil, authsync.NewProviderError(authsync.CodeUserNotFound, "There is no user record corresponding to this identifier.")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during verification")
	}

	if account.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*account.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			account.LoginAttempts = 0
		}
	}

	// too many attempts in the window, cool off
	if account.LoginAttempts >= MaxLoginAttempts {
		return nil, authsync.NewProviderError(authsync.CodeTooManyRequests, "Access to this account has been temporarily disabled due to many failed login attempts.")
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if err2 := d.accounts.TrackAttemptedLogin(ctx, account); err2 != nil {
			return nil, goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}
		return nil, authsync.NewProviderError(authsync.CodeWrongPassword, "The password is invalid.")
	}

	if err := d.accounts.TrackSuccessfulLogin(ctx, account); err != nil {
		d.logger.Error("failed to track successful login", "error", err)
	}

	return account, nil
}

// Lookup returns the account for uid.
func (d *Directory) Lookup(ctx context.Context, uid string) (*repository.Account, error) {
	account, err := d.accounts.GetByIdentifier(ctx, uid)
	if err != nil {
		if repo.IsRecordNotFound(err) {
			return nil, authsync.NewProviderError(authsync.CodeUserNotFound, "There is no user record corresponding to this identifier.")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}
	return account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func toIdentity(account *repository.Account) *authsync.Identity {
	return &authsync.Identity{
		UID:           account.ID.String(),
		Email:         account.Email,
		DisplayName:   account.DisplayName,
		EmailVerified: account.EmailVerified,
	}
}
