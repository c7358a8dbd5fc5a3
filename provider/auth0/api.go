package auth0

import (
	"context"
	"fmt"

	"github.com/auth0/go-auth0/authentication"
	"github.com/auth0/go-auth0/authentication/database"
	"github.com/auth0/go-auth0/authentication/oauth"
)

// UserInfo is the subset of the Auth0 profile the client needs.
type UserInfo struct {
	Sub           string
	Email         string
	EmailVerified bool
	Name          string
}

// API is the slice of the Auth0 authentication API used by Client.
type API interface {
	Login(ctx context.Context, cfg Config, email, password string) (accessToken string, err error)
	Signup(ctx context.Context, cfg Config, email, password string) error
	UserInfo(ctx context.Context, accessToken string) (*UserInfo, error)
}

type sdkAPI struct {
	client *authentication.Authentication
}

// NewAPI builds an API backed by the go-auth0 authentication client.
func NewAPI(ctx context.Context, cfg Config) (API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []authentication.Option{
		authentication.WithClientID(cfg.ClientID),
	}
	if cfg.ClientSecret != "" {
		opts = append(opts, authentication.WithClientSecret(cfg.ClientSecret))
	}

	client, err := authentication.New(ctx, cfg.domain(), opts...)
	if err != nil {
		return nil, fmt.Errorf("auth0: failed to create authentication client: %w", err)
	}

	return &sdkAPI{client: client}, nil
}

func (a *sdkAPI) Login(ctx context.Context, cfg Config, email, password string) (string, error) {
	tokens, err := a.client.OAuth.LoginWithPassword(ctx, oauth.LoginWithPasswordRequest{
		Username: email,
		Password: password,
		Realm:    cfg.Connection,
		Scope:    cfg.Scope,
		Audience: cfg.Audience,
	}, oauth.IDTokenValidationOptions{})
	if err != nil {
		return "", err
	}
	return tokens.AccessToken, nil
}

func (a *sdkAPI) Signup(ctx context.Context, cfg Config, email, password string) error {
	_, err := a.client.Database.Signup(ctx, database.SignupRequest{
		Connection: cfg.Connection,
		Email:      email,
		Password:   password,
	})
	return err
}

func (a *sdkAPI) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	info, err := a.client.UserInfo(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &UserInfo{
		Sub:           info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		Name:          info.Name,
	}, nil
}
