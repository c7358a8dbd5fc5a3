package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	authsync "github.com/goliatone/go-authsync"
	"github.com/goliatone/go-authsync/activitymap"
	"github.com/goliatone/go-authsync/config"
	"github.com/goliatone/go-authsync/provider/auth0"
	"github.com/goliatone/go-authsync/provider/local"
	"github.com/goliatone/go-authsync/repository"
	"github.com/goliatone/go-authsync/web"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-print"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

type App struct {
	config   *gconfig.Container[*config.BaseConfig]
	db       *bun.DB
	repo     repository.Manager
	profiles *authsync.ProfileStore
	redis    *redis.Client
	registry *web.Registry
	srv      *web.Server
	logger   *glog.BaseLogger
	closers  []func()
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("authsync"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(config.Defaults()).
		WithLogger(lgr.GetLogger("config"))

	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}
	defer app.Close()

	if app.Config().App.Debug {
		fmt.Println("============")
		fmt.Println(print.MaybeHighlightJSON(app.Config()))
		fmt.Println("============")
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithSessions(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	go func() {
		addr := app.Config().Server.Addr
		app.GetLogger("http").Info("listening", "addr", addr)
		if err := app.srv.Listen(addr); err != nil {
			app.GetLogger("http").Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config().Server.GetShutdownTimeout())
	defer cancel()

	if err := app.srv.Shutdown(shutdownCtx); err != nil {
		app.GetLogger("http").Error("shutdown failed", "error", err)
	}
}

// WithPersistence opens the database through go-persistence-bun, migrates
// it and builds the profile store, with the redis cache in front when
// enabled.
func WithPersistence(ctx context.Context, app *App) error {
	pcfg := app.Config().Persistence

	client, err := repository.NewClient(pcfg)
	if err != nil {
		return err
	}
	client.SetLogger(app.GetLogger("persistence"))

	db := client.DB()
	app.db = db
	app.onClose(func() { _ = db.Close() })

	if err := repository.Migrate(ctx, db); err != nil {
		return err
	}

	app.repo = repository.NewRepositoryManager(db)
	app.repo.MustValidate()

	var store authsync.DocumentStore = app.repo.Documents()

	if ccfg := app.Config().Cache; ccfg.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     ccfg.Addr,
			Password: ccfg.Password,
			DB:       ccfg.DB,
		})
		app.redis = client
		app.onClose(func() { _ = client.Close() })

		cached := repository.NewCachedStore(store, client).
			WithTTL(ccfg.GetTTL()).
			WithLogger(app.GetLogger("cache"))
		if ccfg.Prefix != "" {
			cached.WithPrefix(ccfg.Prefix)
		}
		store = cached
	}

	app.profiles = authsync.NewProfileStore(store).
		WithLogger(app.GetLogger("profiles"))
	if pcfg.Collection != "" {
		app.profiles.WithCollection(pcfg.Collection)
	}

	return nil
}

// WithSessions builds the per browser session registry over the configured
// identity provider.
func WithSessions(ctx context.Context, app *App) error {
	factory, err := providerFactory(ctx, app)
	if err != nil {
		return err
	}

	logger := app.GetLogger("auth")

	sink := authsync.LoggerActivitySink(app.GetLogger("activity"))
	if app.redis != nil {
		sink = activitymap.Fanout(sink, activitymap.NewStreamSink(app.redis))
	}

	app.registry = web.NewRegistry(factory, app.profiles).
		WithLogger(logger).
		WithActivitySink(sink).
		WithFailClosed(app.Config().Auth.FailClosed)
	app.onClose(app.registry.Close)

	scfg := app.Config().Server
	go app.registry.RunSweeper(ctx, scfg.GetSweepInterval(), scfg.GetSessionIdle())

	return nil
}

func providerFactory(ctx context.Context, app *App) (web.ProviderFactory, error) {
	pcfg := app.Config().Provider

	switch pcfg.Kind {
	case config.ProviderAuth0:
		api, err := auth0.NewAPI(ctx, pcfg.Auth0)
		if err != nil {
			return nil, err
		}
		logger := app.GetLogger("auth0")
		return func(context.Context) (authsync.IdentityProvider, error) {
			return auth0.NewClient(api, pcfg.Auth0).WithLogger(logger), nil
		}, nil

	case config.ProviderLocal, "":
		dir := local.NewDirectory(app.repo.Accounts()).
			WithLogger(app.GetLogger("accounts"))
		if pcfg.HashCost > 0 {
			dir.WithHashCost(pcfg.HashCost)
		}
		return func(context.Context) (authsync.IdentityProvider, error) {
			return local.NewClient(dir), nil
		}, nil
	}

	return nil, errors.New("unknown identity provider "+pcfg.Kind, errors.CategoryBadInput).
		WithTextCode("PROVIDER_UNKNOWN")
}

func WithHTTPServer(_ context.Context, app *App) error {
	acfg := app.Config().Auth
	scfg := app.Config().Server

	tokens := web.NewSessionTokens([]byte(acfg.SigningKey), acfg.Issuer, acfg.GetSessionTTL())

	controller := web.NewController(app.registry, tokens,
		web.WithControllerLogger(app.GetLogger("http")),
		web.WithDebug(app.Config().App.Debug),
		web.WithCookie(scfg.CookieName, scfg.SecureCookie),
		web.WithReadyTimeout(scfg.GetReadyTimeout()),
	)

	srv, err := web.NewServer(controller)
	if err != nil {
		return err
	}
	app.srv = srv

	return nil
}
