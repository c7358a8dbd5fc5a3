package authsync

import (
	"context"
	"sync"
)

// Bridge keeps an AuthViewState in sync with an identity provider session.
//
// Every transition reported by the provider is handled in order, one at a
// time. A signed in identity is resolved to its profile, creating it on first
// sight unless it already exists. When the profile cannot be resolved the
// bridge still reports the user as signed in, with a fallback view user and
// AuthErrorMessage, unless WithFailClosed was set.
//
// When the resolver is also a ProfileWatcher, writes to the signed in user's
// profile are picked up and republished.
type Bridge struct {
	provider IdentityProvider
	profiles ProfileResolver
	logger   Logger
	activity ActivitySink

	failClosed bool

	mu    sync.RWMutex
	state AuthViewState

	states    *Feed[AuthViewState]
	ready     chan struct{}
	readyOnce sync.Once

	// current is the identity behind the published state, touched only by
	// the run loop.
	current *Identity

	lifecycle sync.Mutex
	started   bool
	cancel    context.CancelFunc
	sub       *Subscription[*Identity]
	watch     *Subscription[string]
	done      chan struct{}
	stopOnce  sync.Once
}

// NewBridge creates a bridge in the loading state. Nothing is observed
// until Start is called.
func NewBridge(provider IdentityProvider, profiles ProfileResolver) *Bridge {
	initial := LoadingState()
	return &Bridge{
		provider: provider,
		profiles: profiles,
		logger:   defLogger{},
		activity: noopActivitySink{},
		state:    initial,
		states:   NewFeed(initial),
		ready:    make(chan struct{}),
	}
}

func (b *Bridge) WithLogger(l Logger) *Bridge {
	b.logger = normalizeLogger(l)
	return b
}

func (b *Bridge) WithActivitySink(sink ActivitySink) *Bridge {
	b.activity = normalizeActivitySink(sink)
	return b
}

// WithFailClosed makes resolution failures publish a signed out state
// carrying AuthErrorMessage instead of a fallback user.
func (b *Bridge) WithFailClosed() *Bridge {
	b.failClosed = true
	return b
}

// Start subscribes to the provider and begins processing transitions.
func (b *Bridge) Start(ctx context.Context) error {
	b.lifecycle.Lock()
	defer b.lifecycle.Unlock()

	if b.started {
		return ErrBridgeAlreadyStarted
	}
	b.started = true

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.sub = b.provider.Subscribe()
	if watcher, ok := b.profiles.(ProfileWatcher); ok {
		b.watch = watcher.Watch()
	}
	b.done = make(chan struct{})

	go b.run(ctx, b.sub, b.watch, b.done)

	return nil
}

// Stop ends the subscription and waits for the processing loop to exit.
// No state is published after Stop returns. Calling Stop more than once, or
// before Start, is safe.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.lifecycle.Lock()
		b.started = true
		cancel, sub, watch, done := b.cancel, b.sub, b.watch, b.done
		b.lifecycle.Unlock()

		if cancel != nil {
			cancel()
		}
		if sub != nil {
			sub.Cancel()
		}
		if watch != nil {
			watch.Cancel()
		}
		if done != nil {
			<-done
		}
		b.states.Close()
	})
}

// State returns a copy of the current state.
func (b *Bridge) State() AuthViewState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state.Copy()
}

// Subscribe returns a subscription to state changes. The current state is
// delivered first.
func (b *Bridge) Subscribe() *Subscription[AuthViewState] {
	return b.states.Subscribe()
}

// WaitReady blocks until the first transition has been published.
func (b *Bridge) WaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Await blocks until a published state satisfies match, returning it.
func (b *Bridge) Await(ctx context.Context, match func(AuthViewState) bool) (AuthViewState, error) {
	sub := b.states.Subscribe()
	defer sub.Cancel()

	for {
		select {
		case state, ok := <-sub.C():
			if !ok {
				return b.State(), ErrBridgeStopped
			}
			if match(state) {
				return state.Copy(), nil
			}
		case <-ctx.Done():
			return b.State(), ctx.Err()
		}
	}
}

func (b *Bridge) run(ctx context.Context, sub *Subscription[*Identity], watch *Subscription[string], done chan struct{}) {
	defer close(done)

	// a nil channel blocks forever, so without a watcher only sub is read
	var changes <-chan string
	if watch != nil {
		changes = watch.C()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case identity, ok := <-sub.C():
			if !ok {
				return
			}
			b.handle(ctx, identity)
		case uid, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			b.refresh(ctx, uid)
		}
	}
}

func (b *Bridge) handle(ctx context.Context, identity *Identity) {
	if identity == nil {
		b.current = nil
		b.publish(ctx, signedOutState())
		return
	}

	record, err := b.resolve(ctx, identity)
	if err == nil {
		b.current = identity
		b.publish(ctx, signedInState(ToViewUser(record), ""))
		return
	}

	if ctx.Err() != nil {
		return
	}

	b.logger.Error("failed to resolve profile for identity",
		"uid", identity.UID,
		"email", identity.Email,
		"error", err,
	)

	recordActivity(ctx, b.activity, b.logger, ActivityEvent{
		EventType: ActivityEventProfileFallback,
		UserID:    identity.UID,
		Email:     identity.Email,
		Metadata: map[string]any{
			"error":       err.Error(),
			"fail_closed": b.failClosed,
		},
	})

	if b.failClosed {
		b.current = nil
		state := signedOutState()
		state.Error = AuthErrorMessage
		b.publish(ctx, state)
		return
	}

	b.current = identity
	b.publish(ctx, signedInState(FallbackViewUser(identity), AuthErrorMessage))
}

// refresh re-reads the signed in user's profile after it was written
// elsewhere, e.g. by Actions.Register racing the first sign in.
func (b *Bridge) refresh(ctx context.Context, uid string) {
	if b.current == nil || uid == "" || uid != b.current.UID {
		return
	}

	record, err := b.profiles.Get(ctx, uid)
	if err != nil || record == nil {
		if err != nil {
			b.logger.Warn("failed to refresh profile", "uid", uid, "error", err)
		}
		return
	}

	state := signedInState(ToViewUser(record), "")
	if sameState(b.State(), state) {
		return
	}
	b.publish(ctx, state)
}

func (b *Bridge) resolve(ctx context.Context, identity *Identity) (*ProfileRecord, error) {
	record, err := b.profiles.Get(ctx, identity.UID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	record, created, err := b.profiles.CreateIfAbsent(ctx, identity.UID, identity.Email, ProfileOverrides{})
	if err != nil {
		return nil, err
	}
	if !created {
		return record, nil
	}

	recordActivity(ctx, b.activity, b.logger, ActivityEvent{
		EventType: ActivityEventProfileCreated,
		UserID:    identity.UID,
		Email:     identity.Email,
		Metadata:  map[string]any{"source": "first_sign_in"},
	})

	return record, nil
}

func (b *Bridge) publish(ctx context.Context, state AuthViewState) {
	if ctx.Err() != nil {
		return
	}

	b.mu.Lock()
	b.state = state.Copy()
	b.mu.Unlock()

	b.states.Publish(state.Copy())
	b.readyOnce.Do(func() { close(b.ready) })

	b.logger.Debug("auth state published",
		"authenticated", state.IsAuthenticated,
		"error", state.Error,
	)
}

func sameState(a, b AuthViewState) bool {
	if a.IsAuthenticated != b.IsAuthenticated || a.IsLoading != b.IsLoading || a.Error != b.Error {
		return false
	}
	if a.User == nil || b.User == nil {
		return a.User == b.User
	}
	return *a.User == *b.User
}
