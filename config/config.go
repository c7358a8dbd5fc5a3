// Package config holds the server configuration loaded through go-config.
package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-authsync/provider/auth0"
	"github.com/goliatone/go-authsync/repository"
	persistence "github.com/goliatone/go-persistence-bun"
)

const (
	ProviderLocal = "local"
	ProviderAuth0 = "auth0"
)

type BaseConfig struct {
	App         App         `koanf:"app" json:"app"`
	Server      Server      `koanf:"server" json:"server"`
	Auth        Auth        `koanf:"auth" json:"auth"`
	Persistence Persistence `koanf:"persistence" json:"persistence"`
	Cache       Cache       `koanf:"cache" json:"cache"`
	Provider    Provider    `koanf:"provider" json:"provider"`
}

type App struct {
	Name  string `koanf:"name" json:"name"`
	Debug bool   `koanf:"debug" json:"debug"`
}

type Server struct {
	Addr                    string `koanf:"addr" json:"addr"`
	CookieName              string `koanf:"cookie_name" json:"cookie_name"`
	SecureCookie            bool   `koanf:"secure_cookie" json:"secure_cookie"`
	ReadyTimeoutExpression  string `koanf:"ready_timeout" json:"ready_timeout"`
	SessionIdleExpression   string `koanf:"session_idle" json:"session_idle"`
	SweepIntervalExpression string `koanf:"sweep_interval" json:"sweep_interval"`
	ShutdownExpression      string `koanf:"shutdown_timeout" json:"shutdown_timeout"`
}

type Auth struct {
	SigningKey           string `koanf:"signing_key" json:"signing_key"`
	Issuer               string `koanf:"issuer" json:"issuer"`
	SessionTTLExpression string `koanf:"session_ttl" json:"session_ttl"`
	// FailClosed signs users out when their profile cannot be resolved
	// instead of showing a fallback user.
	FailClosed bool `koanf:"fail_closed" json:"fail_closed"`
}

type Persistence struct {
	Debug                 bool   `koanf:"debug" json:"debug"`
	Driver                string `koanf:"driver" json:"driver"`
	DSN                   string `koanf:"dsn" json:"dsn"`
	Collection            string `koanf:"collection" json:"collection"`
	PingTimeoutExpression string `koanf:"ping_timeout" json:"ping_timeout"`
	OtelIdentifier        string `koanf:"otel_identifier" json:"otel_identifier"`
}

var _ persistence.Config = Persistence{}

type Cache struct {
	Enabled       bool   `koanf:"enabled" json:"enabled"`
	Addr          string `koanf:"addr" json:"addr"`
	Password      string `koanf:"password" json:"password"`
	DB            int    `koanf:"db" json:"db"`
	Prefix        string `koanf:"prefix" json:"prefix"`
	TTLExpression string `koanf:"ttl" json:"ttl"`
}

type Provider struct {
	Kind     string       `koanf:"kind" json:"kind"`
	HashCost int          `koanf:"hash_cost" json:"hash_cost"`
	Auth0    auth0.Config `koanf:"auth0" json:"auth0"`
}

// Defaults is the configuration used when nothing overrides it.
func Defaults() *BaseConfig {
	return &BaseConfig{
		App: App{Name: "authsync"},
		Server: Server{
			Addr:                    ":8572",
			CookieName:              "authsync_session",
			ReadyTimeoutExpression:  "2s",
			SessionIdleExpression:   "30m",
			SweepIntervalExpression: "1m",
			ShutdownExpression:      "10s",
		},
		Auth: Auth{
			Issuer:               "authsync",
			SessionTTLExpression: "24h",
		},
		Persistence: Persistence{
			Driver:                repository.DriverSQLite,
			DSN:                   "file:authsync.db?cache=shared",
			PingTimeoutExpression: "5s",
			OtelIdentifier:        "authsync",
		},
		Cache: Cache{
			Addr:          "localhost:6379",
			TTLExpression: "5m",
		},
		Provider: Provider{
			Kind: ProviderLocal,
		},
	}
}

func (a BaseConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Server),
		validation.Field(&a.Auth),
		validation.Field(&a.Persistence),
		validation.Field(&a.Cache),
		validation.Field(&a.Provider),
	)
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.ReadyTimeoutExpression, validation.By(isDuration)),
		validation.Field(&s.SessionIdleExpression, validation.By(isDuration)),
		validation.Field(&s.SweepIntervalExpression, validation.By(isDuration)),
		validation.Field(&s.ShutdownExpression, validation.By(isDuration)),
	)
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(16, 0)),
		validation.Field(&a.SessionTTLExpression, validation.By(isDuration)),
	)
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.Required, validation.In(repository.DriverSQLite, repository.DriverPostgres)),
		validation.Field(&p.DSN, validation.Required),
		validation.Field(&p.PingTimeoutExpression, validation.By(isDuration)),
	)
}

func (c Cache) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.TTLExpression, validation.By(isDuration)),
	)
}

func (p Provider) Validate() error {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.Kind, validation.Required, validation.In(ProviderLocal, ProviderAuth0)),
	)
	if err != nil {
		return err
	}
	if p.Kind == ProviderAuth0 {
		return p.Auth0.Validate()
	}
	return nil
}

func (s Server) GetReadyTimeout() time.Duration {
	return mustDuration(s.ReadyTimeoutExpression)
}

func (s Server) GetSessionIdle() time.Duration {
	return mustDuration(s.SessionIdleExpression)
}

func (s Server) GetSweepInterval() time.Duration {
	return mustDuration(s.SweepIntervalExpression)
}

func (s Server) GetShutdownTimeout() time.Duration {
	return mustDuration(s.ShutdownExpression)
}

func (a Auth) GetSessionTTL() time.Duration {
	return mustDuration(a.SessionTTLExpression)
}

func (c Cache) GetTTL() time.Duration {
	return mustDuration(c.TTLExpression)
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetDriver() string {
	return p.Driver
}

func (p Persistence) GetServer() string {
	return p.DSN
}

func (p Persistence) GetPingTimeout() time.Duration {
	return mustDuration(p.PingTimeoutExpression)
}

func (p Persistence) GetOtelIdentifier() string {
	return p.OtelIdentifier
}

func (p Persistence) GetRepositoryConfig() repository.Config {
	return repository.Config{Driver: p.Driver, DSN: p.DSN}
}

// mustDuration panics on expressions that Validate would have rejected. An
// empty expression is zero.
func mustDuration(expr string) time.Duration {
	if expr == "" {
		return 0
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse duration: expr %s", expr),
		)
	}
	return dur
}

func isDuration(value any) error {
	expr, _ := value.(string)
	if expr == "" {
		return nil
	}
	if _, err := time.ParseDuration(expr); err != nil {
		return fmt.Errorf("must be a duration, e.g. 30s")
	}
	return nil
}
