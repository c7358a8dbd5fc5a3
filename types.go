package authsync

import (
	"context"
)

// Logger is the logging contract used across the package. Named loggers from
// go-logger/glog satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity is the identity provider's own minimal user object. It is distinct
// from the ProfileRecord we keep in the document store.
type Identity struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// IdentityProvider is a client session against an identity provider.
//
// Subscribe returns a subscription whose first delivery is the current auth
// state. A nil identity means the session is signed out. Deliveries happen in
// the order transitions occur and never concurrently for one subscription.
//
// Rejections are returned as *goerrors.Error values whose TextCode holds the
// provider error code (see the Code* constants).
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignUp(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context) error
	Subscribe() *Subscription[*Identity]
}

// DocumentStore addresses schemaless documents by collection and id.
//
// Get returns a nil Document and a nil error when the document does not exist.
// Create writes doc only when nothing is stored under id and reports whether
// it did. Update merges fields into an existing document and fails with
// ErrDocumentNotFound when there is nothing to update.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Set(ctx context.Context, collection, id string, doc Document) error
	Create(ctx context.Context, collection, id string, doc Document) (bool, error)
	Update(ctx context.Context, collection, id string, fields Document) error
}

// ProfileResolver is what the Bridge needs to resolve a signed in identity.
// CreateIfAbsent never replaces a stored profile, when one exists it is
// returned with created set to false.
type ProfileResolver interface {
	Get(ctx context.Context, uid string) (*ProfileRecord, error)
	CreateIfAbsent(ctx context.Context, uid, email string, overrides ProfileOverrides) (record *ProfileRecord, created bool, err error)
}

// ProfileWatcher is implemented by resolvers that report profile writes.
// Each delivery is the uid of a profile that was created or changed.
type ProfileWatcher interface {
	Watch() *Subscription[string]
}

// ProfileWriter is what Actions need to bootstrap and stamp profiles.
type ProfileWriter interface {
	Create(ctx context.Context, uid, email string, overrides ProfileOverrides) (*ProfileRecord, error)
	TouchLastLogin(ctx context.Context, uid string) error
}
