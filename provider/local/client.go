package local

import (
	"context"

	authsync "github.com/goliatone/go-authsync"
)

// Client is one session against a Directory. It keeps its own auth state and
// reports transitions to subscribers, like a hosted SDK instance would.
type Client struct {
	dir   *Directory
	state *authsync.Feed[*authsync.Identity]
}

var _ authsync.IdentityProvider = (*Client)(nil)

// NewClient starts a signed out session.
func NewClient(dir *Directory) *Client {
	return &Client{
		dir:   dir,
		state: authsync.NewFeed[*authsync.Identity](nil),
	}
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*authsync.Identity, error) {
	account, err := c.dir.Verify(ctx, email, password)
	if err != nil {
		return nil, err
	}

	identity := toIdentity(account)
	c.state.Publish(identity)
	return identity, nil
}

// SignUp creates the account and signs the session in.
func (c *Client) SignUp(ctx context.Context, email, password string) (*authsync.Identity, error) {
	account, err := c.dir.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}

	identity := toIdentity(account)
	c.state.Publish(identity)
	return identity, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.state.Publish(nil)
	return nil
}

func (c *Client) Subscribe() *authsync.Subscription[*authsync.Identity] {
	return c.state.Subscribe()
}

// Resume signs the session in as uid without credentials. Used to restore a
// session from a verified cookie.
func (c *Client) Resume(ctx context.Context, uid string) error {
	account, err := c.dir.Lookup(ctx, uid)
	if err != nil {
		return err
	}
	c.state.Publish(toIdentity(account))
	return nil
}

// Close ends every subscription on this session.
func (c *Client) Close() {
	c.state.Close()
}
