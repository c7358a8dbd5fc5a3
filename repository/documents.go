package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	authsync "github.com/goliatone/go-authsync"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DocumentRecord is the Bun model backing the document store. One row per
// collection/key pair, the payload lives in data.
type DocumentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid"`
	Collection string         `bun:"collection,notnull"`
	Key        string         `bun:"doc_key,notnull"`
	Data       map[string]any `bun:"data,type:jsonb"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// DocumentID derives the primary key for a collection/key pair. The same
// pair always maps to the same id.
func DocumentID(collection, key string) (uuid.UUID, error) {
	return hashid.NewUUID(collection + "/" + key)
}

// Documents is a DocumentStore persisted with Bun.
type Documents interface {
	authsync.DocumentStore

	// Records exposes the generic repository over the raw rows.
	Records() repository.Repository[*DocumentRecord]

	GetTx(ctx context.Context, tx bun.IDB, collection, id string) (authsync.Document, error)
	SetTx(ctx context.Context, tx bun.IDB, collection, id string, doc authsync.Document) error
	CreateTx(ctx context.Context, tx bun.IDB, collection, id string, doc authsync.Document) (bool, error)
	UpdateTx(ctx context.Context, tx bun.IDB, collection, id string, fields authsync.Document) error
}

type documents struct {
	records repository.Repository[*DocumentRecord]
	db      *bun.DB
	now     func() time.Time
}

var (
	_ authsync.DocumentStore = (*documents)(nil)
	_ Documents              = (*documents)(nil)
)

// NewDocumentsRepository creates a Bun backed document store.
func NewDocumentsRepository(db *bun.DB) Documents {
	repo := repository.NewRepository[*DocumentRecord](db, repository.ModelHandlers[*DocumentRecord]{
		NewRecord: func() *DocumentRecord { return &DocumentRecord{} },
		GetID: func(r *DocumentRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *DocumentRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
	})

	return &documents{
		records: repo,
		db:      db,
		now:     time.Now,
	}
}

func (d *documents) Records() repository.Repository[*DocumentRecord] {
	return d.records
}

func (d *documents) Get(ctx context.Context, collection, id string) (authsync.Document, error) {
	key, err := DocumentID(collection, id)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive document id")
	}

	record, err := d.records.GetByID(ctx, key.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return toDocument(record), nil
}

func (d *documents) GetTx(ctx context.Context, tx bun.IDB, collection, id string) (authsync.Document, error) {
	record, err := d.find(ctx, tx, collection, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	return toDocument(record), nil
}

func (d *documents) Set(ctx context.Context, collection, id string, doc authsync.Document) error {
	return d.SetTx(ctx, d.db, collection, id, doc)
}

func (d *documents) SetTx(ctx context.Context, tx bun.IDB, collection, id string, doc authsync.Document) error {
	record, err := d.newRecord(collection, id, doc)
	if err != nil {
		return err
	}

	_, err = tx.NewInsert().
		Model(record).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

func (d *documents) Create(ctx context.Context, collection, id string, doc authsync.Document) (bool, error) {
	return d.CreateTx(ctx, d.db, collection, id, doc)
}

// CreateTx inserts the document unless the key is taken. The stored row is
// left untouched on conflict.
func (d *documents) CreateTx(ctx context.Context, tx bun.IDB, collection, id string, doc authsync.Document) (bool, error) {
	record, err := d.newRecord(collection, id, doc)
	if err != nil {
		return false, err
	}

	res, err := tx.NewInsert().
		Model(record).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read affected rows")
	}

	return affected > 0, nil
}

func (d *documents) newRecord(collection, id string, doc authsync.Document) (*DocumentRecord, error) {
	key, err := DocumentID(collection, id)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive document id")
	}

	now := d.now().UTC()
	record := &DocumentRecord{
		ID:         key,
		Collection: collection,
		Key:        id,
		Data:       map[string]any(doc.Clone()),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if record.Data == nil {
		record.Data = map[string]any{}
	}
	return record, nil
}

func (d *documents) Update(ctx context.Context, collection, id string, fields authsync.Document) error {
	return d.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return d.UpdateTx(ctx, tx, collection, id, fields)
	})
}

func (d *documents) UpdateTx(ctx context.Context, tx bun.IDB, collection, id string, fields authsync.Document) error {
	record, err := d.find(ctx, tx, collection, id)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return authsync.ErrDocumentNotFound.Clone().WithMetadata(map[string]any{
				"collection": collection,
				"id":         id,
			})
		}
		return err
	}

	record.Data = map[string]any(authsync.Document(record.Data).Merge(fields))
	record.UpdatedAt = d.now().UTC()

	_, err = tx.NewUpdate().
		Model(record).
		Column("data", "updated_at").
		WherePK().
		Exec(ctx)

	return err
}

func (d *documents) find(ctx context.Context, tx bun.IDB, collection, id string) (*DocumentRecord, error) {
	key, err := DocumentID(collection, id)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to derive document id")
	}

	record := &DocumentRecord{}
	err = tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", key).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"collection": collection,
					"id":         id,
				})
		}
		return nil, err
	}

	return record, nil
}

func toDocument(record *DocumentRecord) authsync.Document {
	if record == nil {
		return nil
	}
	doc := authsync.Document(record.Data).Clone()
	if doc == nil {
		doc = authsync.Document{}
	}
	return doc
}
