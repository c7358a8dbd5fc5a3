package auth0

import (
	"context"
	"strings"

	authsync "github.com/goliatone/go-authsync"
)

// Client is one session against an Auth0 tenant.
type Client struct {
	api    API
	config Config
	logger authsync.Logger
	state  *authsync.Feed[*authsync.Identity]
}

var _ authsync.IdentityProvider = (*Client)(nil)

// NewClient starts a signed out session.
func NewClient(api API, cfg Config) *Client {
	return &Client{
		api:    api,
		config: cfg.normalize(),
		logger: authsync.DefaultLogger(),
		state:  authsync.NewFeed[*authsync.Identity](nil),
	}
}

func (c *Client) WithLogger(l authsync.Logger) *Client {
	if l != nil {
		c.logger = l
	}
	return c
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*authsync.Identity, error) {
	email = strings.TrimSpace(email)

	token, err := c.api.Login(ctx, c.config, email, password)
	if err != nil {
		return nil, translateError(err)
	}

	info, err := c.api.UserInfo(ctx, token)
	if err != nil {
		return nil, translateError(err)
	}

	identity := toIdentity(info, email)
	c.logger.Debug("auth0 sign in", "uid", identity.UID)
	c.state.Publish(identity)
	return identity, nil
}

// SignUp creates the account on the configured connection and then signs in,
// so the uid matches what later sign ins report.
func (c *Client) SignUp(ctx context.Context, email, password string) (*authsync.Identity, error) {
	email = strings.TrimSpace(email)

	if err := c.api.Signup(ctx, c.config, email, password); err != nil {
		return nil, translateError(err)
	}

	return c.SignIn(ctx, email, password)
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

// Close ends every subscription on this session.
func (c *Client) Close() {
	c.state.Close()
}

func toIdentity(info *UserInfo, email string) *authsync.Identity {
	identity := &authsync.Identity{
		UID:           info.Sub,
		Email:         info.Email,
		DisplayName:   info.Name,
		EmailVerified: info.EmailVerified,
	}
	if identity.Email == "" {
		identity.Email = email
	}
	// Auth0 falls back to the email as name for database users
	if identity.DisplayName == identity.Email {
		identity.DisplayName = ""
	}
	return identity
}
