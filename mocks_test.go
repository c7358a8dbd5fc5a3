package authsync_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	authsync "github.com/goliatone/go-authsync"
	"github.com/stretchr/testify/mock"
)

// MockDocumentStore implements authsync.DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Get(ctx context.Context, collection, id string) (authsync.Document, error) {
	args := m.Called(ctx, collection, id)
	doc, _ := args.Get(0).(authsync.Document)
	return doc, args.Error(1)
}

func (m *MockDocumentStore) Set(ctx context.Context, collection, id string, doc authsync.Document) error {
	args := m.Called(ctx, collection, id, doc)
	return args.Error(0)
}

func (m *MockDocumentStore) Create(ctx context.Context, collection, id string, doc authsync.Document) (bool, error) {
	args := m.Called(ctx, collection, id, doc)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentStore) Update(ctx context.Context, collection, id string, fields authsync.Document) error {
	args := m.Called(ctx, collection, id, fields)
	return args.Error(0)
}

// MockProfiles implements authsync.ProfileResolver and authsync.ProfileWriter
type MockProfiles struct {
	mock.Mock
}

func (m *MockProfiles) Get(ctx context.Context, uid string) (*authsync.ProfileRecord, error) {
	args := m.Called(ctx, uid)
	record, _ := args.Get(0).(*authsync.ProfileRecord)
	return record, args.Error(1)
}

func (m *MockProfiles) Create(ctx context.Context, uid, email string, overrides authsync.ProfileOverrides) (*authsync.ProfileRecord, error) {
	args := m.Called(ctx, uid, email, overrides)
	record, _ := args.Get(0).(*authsync.ProfileRecord)
	return record, args.Error(1)
}

func (m *MockProfiles) CreateIfAbsent(ctx context.Context, uid, email string, overrides authsync.ProfileOverrides) (*authsync.ProfileRecord, bool, error) {
	args := m.Called(ctx, uid, email, overrides)
	record, _ := args.Get(0).(*authsync.ProfileRecord)
	return record, args.Bool(1), args.Error(2)
}

func (m *MockProfiles) TouchLastLogin(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

// SlowStore delays every call to the wrapped store.
type SlowStore struct {
	authsync.DocumentStore
	Delay time.Duration
}

func (s SlowStore) Get(ctx context.Context, collection, id string) (authsync.Document, error) {
	time.Sleep(s.Delay)
	return s.DocumentStore.Get(ctx, collection, id)
}

func (s SlowStore) Set(ctx context.Context, collection, id string, doc authsync.Document) error {
	time.Sleep(s.Delay)
	return s.DocumentStore.Set(ctx, collection, id, doc)
}

func (s SlowStore) Create(ctx context.Context, collection, id string, doc authsync.Document) (bool, error) {
	time.Sleep(s.Delay)
	return s.DocumentStore.Create(ctx, collection, id, doc)
}

func (s SlowStore) Update(ctx context.Context, collection, id string, fields authsync.Document) error {
	time.Sleep(s.Delay)
	return s.DocumentStore.Update(ctx, collection, id, fields)
}

// FakeProvider is an in process identity provider. Accounts are kept in a
// map and auth state is published on a Feed like a hosted SDK would.
type FakeProvider struct {
	mu         sync.Mutex
	accounts   map[string]fakeAccount
	state      *authsync.Feed[*authsync.Identity]
	signInErr  error
	signUpErr  error
	signOutErr error
	nextUID    int
}

type fakeAccount struct {
	identity *authsync.Identity
	password string
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		accounts: map[string]fakeAccount{},
		state:    authsync.NewFeed[*authsync.Identity](nil),
	}
}

func (p *FakeProvider) FailSignIn(err error)  { p.mu.Lock(); p.signInErr = err; p.mu.Unlock() }
func (p *FakeProvider) FailSignUp(err error)  { p.mu.Lock(); p.signUpErr = err; p.mu.Unlock() }
func (p *FakeProvider) FailSignOut(err error) { p.mu.Lock(); p.signOutErr = err; p.mu.Unlock() }

// Emit publishes a transition without going through an action.
func (p *FakeProvider) Emit(identity *authsync.Identity) {
	p.state.Publish(identity)
}

func (p *FakeProvider) SignIn(ctx context.Context, email, password string) (*authsync.Identity, error) {
	p.mu.Lock()
	if p.signInErr != nil {
		err := p.signInErr
		p.mu.Unlock()
		return nil, err
	}
	account, ok := p.accounts[email]
	p.mu.Unlock()

	if !ok {
		return nil, authsync.NewProviderError(authsync.CodeUserNotFound, "user not found")
	}
	if account.password != password {
		return nil, authsync.NewProviderError(authsync.CodeWrongPassword, "wrong password")
	}

	p.state.Publish(account.identity)
	return account.identity, nil
}

func (p *FakeProvider) SignUp(ctx context.Context, email, password string) (*authsync.Identity, error) {
	p.mu.Lock()
	if p.signUpErr != nil {
		err := p.signUpErr
		p.mu.Unlock()
		return nil, err
	}
	if _, ok := p.accounts[email]; ok {
		p.mu.Unlock()
		return nil, authsync.NewProviderError(authsync.CodeEmailAlreadyInUse, "email in use")
	}
	p.nextUID++
	identity := &authsync.Identity{
		UID:   fmt.Sprintf("uid-%d", p.nextUID),
		Email: email,
	}
	p.accounts[email] = fakeAccount{identity: identity, password: password}
	p.mu.Unlock()

	p.state.Publish(identity)
	return identity, nil
}

func (p *FakeProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	err := p.signOutErr
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.state.Publish(nil)
	return nil
}

func (p *FakeProvider) Subscribe() *authsync.Subscription[*authsync.Identity] {
	return p.state.Subscribe()
}

// RecordingSink collects activity events.
type RecordingSink struct {
	mu     sync.Mutex
	events []authsync.ActivityEvent
}

func (s *RecordingSink) Record(_ context.Context, event authsync.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *RecordingSink) Types() []authsync.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authsync.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

// Last returns the most recent event of the given type.
func (s *RecordingSink) Last(eventType authsync.ActivityEventType) (authsync.ActivityEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].EventType == eventType {
			return s.events[i], true
		}
	}
	return authsync.ActivityEvent{}, false
}
