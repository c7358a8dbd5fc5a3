package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// Manager groups the repositories sharing one database handle.
type Manager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Documents() Documents
	Accounts() Accounts
}

type mngr struct {
	db        *bun.DB
	documents Documents
	accounts  Accounts
}

func NewRepositoryManager(db *bun.DB) Manager {
	return &mngr{
		db:        db,
		documents: NewDocumentsRepository(db),
		accounts:  NewAccountsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository database should be initialized")
	}

	if m.documents == nil {
		return errors.New("repository documents should be initialized")
	}

	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Documents() Documents {
	return m.documents
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}
