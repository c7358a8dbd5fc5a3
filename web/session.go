package web

import (
	"context"
	"sync"
	"time"

	authsync "github.com/goliatone/go-authsync"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ProviderFactory opens a new identity provider session for one browser.
type ProviderFactory func(ctx context.Context) (authsync.IdentityProvider, error)

// Resumer is implemented by providers that can restore a signed in session
// from a uid we already verified, e.g. after a server restart.
type Resumer interface {
	Resume(ctx context.Context, uid string) error
}

type closer interface {
	Close()
}

// Session ties one browser to its provider session, bridge and actions.
type Session struct {
	ID       string
	Provider authsync.IdentityProvider
	Bridge   *authsync.Bridge
	Actions  *authsync.Actions

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	s.Bridge.Stop()
	if c, ok := s.Provider.(closer); ok {
		c.Close()
	}
}

// Registry owns every live Session. Bridges run on the registry context, not
// on request contexts.
type Registry struct {
	factory    ProviderFactory
	profiles   *authsync.ProfileStore
	logger     authsync.Logger
	activity   authsync.ActivitySink
	failClosed bool
	now        func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(factory ProviderFactory, profiles *authsync.ProfileStore) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		factory:  factory,
		profiles: profiles,
		logger:   authsync.DefaultLogger(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		sessions: map[string]*Session{},
	}
}

func (r *Registry) WithLogger(l authsync.Logger) *Registry {
	if l != nil {
		r.logger = l
	}
	return r
}

func (r *Registry) WithActivitySink(sink authsync.ActivitySink) *Registry {
	r.activity = sink
	return r
}

// WithFailClosed is passed on to every bridge the registry starts.
func (r *Registry) WithFailClosed(v bool) *Registry {
	r.failClosed = v
	return r
}

func (r *Registry) WithClock(now func() time.Time) *Registry {
	if now != nil {
		r.now = now
	}
	return r
}

// Get returns the live session for sid, if any.
func (r *Registry) Get(sid string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sid]
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

// Open starts a session. An empty sid gets a fresh one. When uid is set and
// the provider is a Resumer the session starts signed in as uid.
func (r *Registry) Open(ctx context.Context, sid, uid string) (*Session, error) {
	if sid == "" {
		sid = uuid.NewString()
	}

	if s, ok := r.Get(sid); ok {
		return s, nil
	}

	provider, err := r.factory(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open identity provider session")
	}

	if uid != "" {
		if resumer, ok := provider.(Resumer); ok {
			if err := resumer.Resume(ctx, uid); err != nil {
				r.logger.Warn("session resume failed", "sid", sid, "uid", uid, "error", err)
			}
		}
	}

	bridge := authsync.NewBridge(provider, r.profiles).
		WithLogger(r.logger).
		WithActivitySink(r.activity)
	if r.failClosed {
		bridge.WithFailClosed()
	}

	actions := authsync.NewActions(provider, r.profiles).
		WithLogger(r.logger).
		WithActivitySink(r.activity)

	s := &Session{
		ID:       sid,
		Provider: provider,
		Bridge:   bridge,
		Actions:  actions,
		lastSeen: r.now(),
	}

	r.mu.Lock()
	if existing, ok := r.sessions[sid]; ok {
		r.mu.Unlock()
		if c, ok := provider.(closer); ok {
			c.Close()
		}
		return existing, nil
	}
	r.sessions[sid] = s
	r.mu.Unlock()

	if err := bridge.Start(r.ctx); err != nil {
		r.remove(sid)
		return nil, err
	}

	r.logger.Debug("session opened", "sid", sid)

	return s, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for longer than idle and returns how many went.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Session
	for sid, s := range r.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, sid)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.close()
	}

	if len(stale) > 0 {
		r.logger.Debug("sessions swept", "count", len(stale))
	}

	return len(stale)
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(idle)
		}
	}
}

// Close stops every session.
func (r *Registry) Close() {
	r.cancel()

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}

func (r *Registry) remove(sid string) {
	r.mu.Lock()
	delete(r.sessions, sid)
	r.mu.Unlock()
}
