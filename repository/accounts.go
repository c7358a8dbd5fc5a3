package repository

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is a credential record for the local identity provider.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`

	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid"`
	Email          string     `bun:"email,notnull,unique"`
	DisplayName    string     `bun:"display_name"`
	PasswordHash   string     `bun:"password_hash,notnull"`
	EmailVerified  bool       `bun:"is_email_verified,notnull"`
	LoginAttempts  int        `bun:"login_attempts,notnull"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero"`
	LoggedInAt     *time.Time `bun:"loggedin_at,nullzero"`
	CreatedAt      time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Accounts stores local identity provider accounts.
type Accounts interface {
	repository.Repository[*Account]

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	TrackAttemptedLogin(ctx context.Context, account *Account) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

// NewAccountsRepository creates the accounts repository.
func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	prepareAccountDefaults(account)
	return a.Repository.CreateTx(ctx, tx, account)
}

// GetByIdentifier finds an account by email, case insensitive, or by id.
func (a *accounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

func (a *accounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	identifier = strings.TrimSpace(identifier)

	record := &Account{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	if id, err := uuid.Parse(identifier); err == nil {
		q = q.Where("?TableAlias.id = ?", id)
	} else {
		q = q.Where("LOWER(?TableAlias.email) = ?", strings.ToLower(identifier))
	}

	if err := q.Limit(1).Scan(ctx); err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"identifier": identifier,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) TrackAttemptedLogin(ctx context.Context, account *Account) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, account)
}

func (a *accounts) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	now := time.Now().UTC()
	_, err := tx.NewRaw(`
		UPDATE "accounts"
		SET
			"login_attempts" = "login_attempts" + 1,
			"login_attempt_at" = ?,
			"updated_at" = ?
		WHERE "id" = ?;
	`, now, now, account.ID).Exec(ctx)
	if err != nil {
		return err
	}

	account.LoginAttempts++
	account.LoginAttemptAt = &now
	return nil
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, account)
}

func (a *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	// Reset through raw SQL, an ORM update skips the zero values.
	loggedInAt := time.Now().UTC()
	_, err := tx.NewRaw(`
		UPDATE "accounts"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE "id" = ?;
	`, loggedInAt, account.ID).Exec(ctx)
	if err != nil {
		return err
	}

	account.LoginAttempts = 0
	account.LoginAttemptAt = nil
	account.LoggedInAt = &loggedInAt
	return nil
}

func prepareAccountDefaults(account *Account) {
	if account == nil {
		return
	}

	account.Email = strings.ToLower(strings.TrimSpace(account.Email))

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}
}
