package authsync

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	goerrors "github.com/goliatone/go-errors"
)

// Profile defaults applied on Create.
const (
	DefaultPrimaryColor   = "#3B82F6"
	DefaultSecondaryColor = "#1E40AF"
	DefaultTimezone       = "America/Los_Angeles"
)

// ProfileStore reads and writes profile documents. Documents live in the
// users collection keyed by uid.
type ProfileStore struct {
	store      DocumentStore
	collection string
	now        func() time.Time
	logger     Logger
	changes    *Feed[string]
}

var (
	_ ProfileResolver = (*ProfileStore)(nil)
	_ ProfileWriter   = (*ProfileStore)(nil)
	_ ProfileWatcher  = (*ProfileStore)(nil)
)

// NewProfileStore creates a ProfileStore backed by store.
func NewProfileStore(store DocumentStore) *ProfileStore {
	return &ProfileStore{
		store:      store,
		collection: UsersCollection,
		now:        time.Now,
		logger:     defLogger{},
		changes:    NewFeed(""),
	}
}

func (s *ProfileStore) WithLogger(l Logger) *ProfileStore {
	s.logger = normalizeLogger(l)
	return s
}

// WithClock overrides the time source used for timestamps.
func (s *ProfileStore) WithClock(now func() time.Time) *ProfileStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *ProfileStore) WithCollection(name string) *ProfileStore {
	if name = strings.TrimSpace(name); name != "" {
		s.collection = name
	}
	return s
}

// Create writes a new profile for uid built from defaults and overrides.
// It always writes, an existing document is replaced.
func (s *ProfileStore) Create(ctx context.Context, uid, email string, overrides ProfileOverrides) (*ProfileRecord, error) {
	record, doc, err := s.build(uid, email, overrides)
	if err != nil {
		return nil, err
	}

	if err := s.store.Set(ctx, s.collection, uid, doc); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create profile").
			WithMetadata(map[string]any{"uid": uid})
	}

	s.logger.Debug("profile created", "uid", uid, "role", string(record.Role))
	s.changes.Publish(uid)

	return record, nil
}

// CreateIfAbsent writes a new profile for uid unless one is already stored,
// in which case the stored profile is returned and created is false.
func (s *ProfileStore) CreateIfAbsent(ctx context.Context, uid, email string, overrides ProfileOverrides) (*ProfileRecord, bool, error) {
	record, doc, err := s.build(uid, email, overrides)
	if err != nil {
		return nil, false, err
	}

	created, err := s.store.Create(ctx, s.collection, uid, doc)
	if err != nil {
		return nil, false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create profile").
			WithMetadata(map[string]any{"uid": uid})
	}

	if created {
		s.logger.Debug("profile created", "uid", uid, "role", string(record.Role))
		s.changes.Publish(uid)
		return record, true, nil
	}

	existing, err := s.Get(ctx, uid)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		// removed between the two calls
		return nil, false, ErrDocumentNotFound.Clone().WithMetadata(map[string]any{
			"collection": s.collection,
			"uid":        uid,
		})
	}

	return existing, false, nil
}

// Watch subscribes to profile writes made through this store. Deliveries
// are uids, the first one is the last uid written or "".
func (s *ProfileStore) Watch() *Subscription[string] {
	return s.changes.Subscribe()
}

func (s *ProfileStore) build(uid, email string, overrides ProfileOverrides) (*ProfileRecord, Document, error) {
	now := s.now().UTC()

	record := &ProfileRecord{
		ID:    uid,
		Email: email,
		Role:  RoleIndividual,
		Profile: ProfileInfo{
			DisplayName: EmailLocalPart(email),
		},
		Branding: Branding{
			PrimaryColor:   DefaultPrimaryColor,
			SecondaryColor: DefaultSecondaryColor,
		},
		Settings: Settings{
			Timezone:           DefaultTimezone,
			EmailNotifications: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}
	applyOverrides(record, overrides)

	doc, err := encodeProfile(record)
	if err != nil {
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode profile").
			WithMetadata(map[string]any{"uid": uid})
	}

	return record, doc, nil
}

// Get returns the profile for uid, or nil when there is none.
func (s *ProfileStore) Get(ctx context.Context, uid string) (*ProfileRecord, error) {
	doc, err := s.store.Get(ctx, s.collection, uid)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to get profile").
			WithMetadata(map[string]any{"uid": uid})
	}

	if doc == nil {
		return nil, nil
	}

	record, err := decodeProfile(doc)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode profile").
			WithMetadata(map[string]any{"uid": uid})
	}

	if record.ID == "" {
		record.ID = uid
	}

	return record, nil
}

// Update merges fields into the stored profile and refreshes updatedAt.
// Values are written as given, nothing is validated.
func (s *ProfileStore) Update(ctx context.Context, uid string, fields Fields) error {
	payload := make(Document, len(fields)+1)
	for k, v := range fields {
		payload[k] = storeValue(v)
	}
	payload["updatedAt"] = formatTime(s.now())

	if err := s.store.Update(ctx, s.collection, uid, payload); err != nil {
		if IsDocumentNotFound(err) {
			return ErrDocumentNotFound.Clone().WithMetadata(map[string]any{
				"collection": s.collection,
				"uid":        uid,
			})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update profile").
			WithMetadata(map[string]any{"uid": uid})
	}

	s.changes.Publish(uid)
	return nil
}

// TouchLastLogin stamps lastLoginAt with the current time.
func (s *ProfileStore) TouchLastLogin(ctx context.Context, uid string) error {
	return s.Update(ctx, uid, Fields{"lastLoginAt": s.now()})
}

func applyOverrides(record *ProfileRecord, o ProfileOverrides) {
	if o.Role != nil {
		record.Role = *o.Role
	}
	if o.Profile != nil {
		record.Profile = *o.Profile
	}
	if o.TeamID != nil {
		record.TeamID = *o.TeamID
	}
	if o.BrokerageID != nil {
		record.BrokerageID = *o.BrokerageID
	}
	if o.Branding != nil {
		record.Branding = *o.Branding
	}
	if o.Settings != nil {
		record.Settings = *o.Settings
	}
	if o.IsActive != nil {
		record.IsActive = *o.IsActive
	}
}

// EmailLocalPart returns everything before the first "@".
func EmailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func storeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return formatTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return formatTime(*t)
	default:
		return v
	}
}

func encodeProfile(record *ProfileRecord) (Document, error) {
	clone := *record
	clone.CreatedAt = clone.CreatedAt.UTC()
	clone.UpdatedAt = clone.UpdatedAt.UTC()
	if clone.LastLoginAt != nil {
		t := clone.LastLoginAt.UTC()
		clone.LastLoginAt = &t
	}

	raw, err := json.Marshal(clone)
	if err != nil {
		return nil, err
	}

	doc := Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeProfile(doc Document) (*ProfileRecord, error) {
	record := &ProfileRecord{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           record,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
		),
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(map[string]any(doc)); err != nil {
		return nil, err
	}
	return record, nil
}
