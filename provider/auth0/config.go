package auth0

import (
	"fmt"
	"strings"
)

// Config holds the Auth0 tenant settings used for password logins.
type Config struct {
	// Domain is the Auth0 tenant domain (e.g., "example.us.auth0.com").
	Domain string `koanf:"domain" json:"domain"`

	ClientID     string `koanf:"client_id" json:"client_id"`
	ClientSecret string `koanf:"client_secret" json:"client_secret"`

	// Connection is the database connection accounts live in.
	// Default: "Username-Password-Authentication".
	Connection string `koanf:"connection" json:"connection"`

	// Audience is the API identifier tokens are requested for (optional).
	Audience string `koanf:"audience" json:"audience"`

	// Scope requested on login. Default: "openid profile email".
	Scope string `koanf:"scope" json:"scope"`
}

const (
	DefaultConnection = "Username-Password-Authentication"
	DefaultScope      = "openid profile email"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(domain, clientID, clientSecret string) Config {
	return Config{
		Domain:       domain,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Connection:   DefaultConnection,
		Scope:        DefaultScope,
	}
}

func (c Config) normalize() Config {
	if strings.TrimSpace(c.Connection) == "" {
		c.Connection = DefaultConnection
	}
	if strings.TrimSpace(c.Scope) == "" {
		c.Scope = DefaultScope
	}
	return c
}

// Validate reports missing tenant settings.
func (c Config) Validate() error {
	if c.domain() == "" {
		return fmt.Errorf("auth0: domain is required")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("auth0: client id is required")
	}
	return nil
}

// domain strips scheme and trailing slash, the SDK wants a bare host.
func (c Config) domain() string {
	domain := strings.TrimSpace(c.Domain)
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	return strings.TrimSuffix(domain, "/")
}
