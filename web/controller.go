package web

import (
	"context"
	"net/http"
	"time"

	authsync "github.com/goliatone/go-authsync"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
)

const sessionLocalKey = "authsync.session"

// DefaultCookieName names the session cookie.
const DefaultCookieName = "authsync_session"

type Routes struct {
	Home       string
	Login      string
	Register   string
	Logout     string
	Dashboard  string
	SessionAPI string
}

type Views struct {
	Login     string
	Register  string
	Dashboard string
	Loading   string
	Error     string
}

// Controller serves the auth pages for browser sessions held in a Registry.
type Controller struct {
	Debug        bool
	Logger       authsync.Logger
	Registry     *Registry
	Tokens       *SessionTokens
	CookieName   string
	SecureCookie bool
	ReadyTimeout time.Duration
	Routes       *Routes
	Views        *Views
}

type ControllerOption func(*Controller) *Controller

func WithControllerLogger(l authsync.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func WithCookie(name string, secure bool) ControllerOption {
	return func(c *Controller) *Controller {
		if name != "" {
			c.CookieName = name
		}
		c.SecureCookie = secure
		return c
	}
}

// WithReadyTimeout bounds how long a request waits for a session's first
// auth state before rendering the loading view.
func WithReadyTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) *Controller {
		if d > 0 {
			c.ReadyTimeout = d
		}
		return c
	}
}

func NewController(registry *Registry, tokens *SessionTokens, opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger:       authsync.DefaultLogger(),
		Registry:     registry,
		Tokens:       tokens,
		CookieName:   DefaultCookieName,
		ReadyTimeout: 2 * time.Second,
		Routes: &Routes{
			Home:       "/",
			Login:      "/login",
			Register:   "/register",
			Logout:     "/logout",
			Dashboard:  "/dashboard",
			SessionAPI: "/api/session",
		},
		Views: &Views{
			Login:     "login",
			Register:  "register",
			Dashboard: "dashboard",
			Loading:   "loading",
			Error:     "error",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registry == nil {
		panic("Missing Registry in web controller...")
	}

	if c.Tokens == nil {
		panic("Missing SessionTokens in web controller...")
	}

	return c
}

// RegisterRoutes mounts the controller's pages on app.
func RegisterRoutes[T any](app router.Router[T], c *Controller) {
	session := c.SessionMiddleware()

	app.Get(c.Routes.Home, c.Home, session).SetName("home.get")

	app.Get(c.Routes.Login, c.LoginShow, session).SetName("sign-in.get")
	app.Post(c.Routes.Login, c.LoginPost, session).SetName("sign-in.post")

	app.Get(c.Routes.Register, c.RegistrationShow, session).SetName("register.get")
	app.Post(c.Routes.Register, c.RegistrationCreate, session).SetName("register.post")

	app.Get(c.Routes.Logout, c.LogOut, session).SetName("sign-out.get")

	app.Get(c.Routes.Dashboard,
		c.GateMiddleware(authsync.Gate{RequireAuth: true})(c.Dashboard),
		session,
	).SetName("dashboard.get")

	app.Get(c.Routes.SessionAPI, c.SessionState, session).SetName("session.get")
}

// SessionMiddleware attaches the browser's Session, opening one when the
// cookie is missing, invalid or refers to a session we no longer hold.
func (c *Controller) SessionMiddleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			var sid, uid string
			if raw := ctx.Cookies(c.CookieName); raw != "" {
				claims, err := c.Tokens.Parse(raw)
				if err != nil {
					c.Logger.Debug("discarding session cookie", "error", err)
				} else {
					sid, uid = claims.SID, claims.UID
				}
			}

			sess, err := c.Registry.Open(ctx.Context(), sid, uid)
			if err != nil {
				return c.ErrorHandler(ctx, err)
			}

			if sess.ID != sid {
				if err := c.writeCookie(ctx, sess.ID, ""); err != nil {
					return c.ErrorHandler(ctx, err)
				}
			}

			ctx.Locals(sessionLocalKey, sess)
			return next(ctx)
		}
	}
}

func (c *Controller) Home(ctx router.Context) error {
	return ctx.Redirect(c.Routes.Dashboard, router.StatusSeeOther)
}

func (c *Controller) LoginShow(ctx router.Context) error {
	state := c.readyState(ctx)
	if state.IsAuthenticated {
		return ctx.Redirect(c.Routes.Dashboard, router.StatusSeeOther)
	}

	return ctx.Render(c.Views.Login, router.ViewContext{
		"errors": map[string]string{},
		"record": authsync.LoginForm{},
		"routes": c.Routes,
	})
}

func (c *Controller) LoginPost(ctx router.Context) error {
	sess := sessionFrom(ctx)
	payload := new(authsync.LoginForm)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("login parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(http.StatusBadRequest).Render(c.Views.Login, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
			"routes": c.Routes,
		})
	}

	if c.Debug {
		c.Logger.Debug("login payload", "email", payload.Email)
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Status(http.StatusUnprocessableEntity).Render(c.Views.Login, router.ViewContext{
			"errors": authsync.FormErrors(err),
			"record": payload,
			"routes": c.Routes,
		})
	}

	result := sess.Actions.Login(ctx.Context(), payload.Email, payload.Password)
	if !result.Success {
		return ctx.Status(http.StatusUnauthorized).Render(c.Views.Login, router.ViewContext{
			"errors": map[string]string{"authentication": result.Error},
			"record": payload,
			"routes": c.Routes,
		})
	}

	return c.signedIn(ctx, sess, result.User, "")
}

func (c *Controller) RegistrationShow(ctx router.Context) error {
	return ctx.Render(c.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": authsync.RegistrationForm{Role: authsync.RoleIndividual},
		"role":   string(authsync.RoleIndividual),
		"routes": c.Routes,
	})
}

func (c *Controller) RegistrationCreate(ctx router.Context) error {
	sess := sessionFrom(ctx)
	payload := new(authsync.RegistrationForm)

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Error("register parse payload", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(http.StatusBadRequest).Render(c.Views.Register, router.ViewContext{
			"errors": map[string]string{"form": "Failed to parse form"},
			"record": payload,
			"role":   string(authsync.RoleIndividual),
			"routes": c.Routes,
		})
	}
	payload.Normalize()

	if c.Debug {
		redacted := *payload
		redacted.Password, redacted.ConfirmPassword = "", ""
		c.Logger.Debug("registration payload", "payload", print.MaybePrettyJSON(redacted))
	}

	if err := payload.Validate(); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Status(http.StatusUnprocessableEntity).Render(c.Views.Register, router.ViewContext{
			"errors": authsync.FormErrors(err),
			"record": payload,
			"role":   string(payload.Role),
			"routes": c.Routes,
		})
	}

	result, err := sess.Actions.Register(ctx.Context(), payload.Email, payload.Password, payload.Fields())
	if err != nil {
		c.Logger.Error("registration left an account without a profile",
			"uid", authsync.OrphanedUID(err), "error", err)
		return ctx.Status(http.StatusInternalServerError).Render(c.Views.Error, router.ViewContext{
			"message": "Your account was created but your profile could not be saved. Please contact support.",
			"routes":  c.Routes,
		})
	}

	if !result.Success {
		return ctx.Status(http.StatusBadRequest).Render(c.Views.Register, router.ViewContext{
			"errors": map[string]string{"authentication": result.Error},
			"record": payload,
			"role":   string(payload.Role),
			"routes": c.Routes,
		})
	}

	role := authsync.ToViewUser(&authsync.ProfileRecord{Role: payload.Role}).Role
	return c.signedIn(ctx, sess, result.User, role)
}

func (c *Controller) LogOut(ctx router.Context) error {
	sess := sessionFrom(ctx)

	result := sess.Actions.Logout(ctx.Context())
	if !result.Success {
		return ctx.Status(http.StatusInternalServerError).Render(c.Views.Error, router.ViewContext{
			"message": result.Error,
			"routes":  c.Routes,
		})
	}

	c.await(ctx, sess, func(s authsync.AuthViewState) bool { return !s.IsLoading && !s.IsAuthenticated })

	if err := c.writeCookie(ctx, sess.ID, ""); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "You have been signed out",
	}).Redirect(c.Routes.Login, router.StatusSeeOther)
}

func (c *Controller) Dashboard(ctx router.Context) error {
	state := sessionFrom(ctx).Bridge.State()
	return ctx.Render(c.Views.Dashboard, router.ViewContext{
		"user":   state.User,
		"error":  state.Error,
		"admin":  state.User != nil && state.User.Role == authsync.ViewRoleAdmin,
		"routes": c.Routes,
	})
}

// SessionState reports the session's auth view state and what the gate
// would do with it.
func (c *Controller) SessionState(ctx router.Context) error {
	state := c.readyState(ctx)
	return ctx.JSON(router.StatusOK, router.ViewContext{
		"state":    state,
		"decision": authsync.Gate{RequireAuth: true}.Decide(state).String(),
	})
}

// GateMiddleware renders the loading view or the login prompt in place of
// the route until gate allows it.
func (c *Controller) GateMiddleware(gate authsync.Gate) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			state := c.readyState(ctx)

			switch gate.Decide(state) {
			case authsync.DecisionLoading:
				ctx.SetHeader("Retry-After", "1")
				return ctx.Status(http.StatusServiceUnavailable).Render(c.Views.Loading, router.ViewContext{
					"redirect": ctx.OriginalURL(),
				})
			case authsync.DecisionLoginPrompt:
				return ctx.Status(http.StatusUnauthorized).Render(c.Views.Login, router.ViewContext{
					"errors": map[string]string{},
					"record": authsync.LoginForm{},
					"routes": c.Routes,
				})
			}

			return next(ctx)
		}
	}
}

// ErrorHandler renders failures with the error view.
func (c *Controller) ErrorHandler(ctx router.Context, err error) error {
	c.Logger.Error("request failed", "path", ctx.Path(), "error", err)

	return ctx.Status(http.StatusInternalServerError).Render(c.Views.Error, router.ViewContext{
		"message": authsync.AuthErrorMessage,
		"routes":  c.Routes,
	})
}

// signedIn waits for the bridge to show uid, with role when it is set,
// then points the cookie at the user and redirects to the dashboard.
func (c *Controller) signedIn(ctx router.Context, sess *Session, identity *authsync.Identity, role string) error {
	uid := ""
	if identity != nil {
		uid = identity.UID
	}

	c.await(ctx, sess, func(s authsync.AuthViewState) bool {
		if !s.IsAuthenticated || s.User == nil || s.User.UID != uid {
			return false
		}
		return role == "" || s.User.Role == role
	})

	if err := c.writeCookie(ctx, sess.ID, uid); err != nil {
		return c.ErrorHandler(ctx, err)
	}

	return ctx.Redirect(c.Routes.Dashboard, router.StatusSeeOther)
}

// await waits for the bridge to catch up with an action. Timing out is not
// an error, the gate shows the loading view meanwhile.
func (c *Controller) await(ctx router.Context, sess *Session, match func(authsync.AuthViewState) bool) {
	wctx, cancel := context.WithTimeout(ctx.Context(), c.ReadyTimeout)
	defer cancel()

	if _, err := sess.Bridge.Await(wctx, match); err != nil {
		c.Logger.Warn("auth state did not settle", "sid", sess.ID, "error", err)
	}
}

func (c *Controller) readyState(ctx router.Context) authsync.AuthViewState {
	sess := sessionFrom(ctx)

	wctx, cancel := context.WithTimeout(ctx.Context(), c.ReadyTimeout)
	defer cancel()

	_ = sess.Bridge.WaitReady(wctx)
	return sess.Bridge.State()
}

func (c *Controller) writeCookie(ctx router.Context, sid, uid string) error {
	token, err := c.Tokens.Issue(sid, uid)
	if err != nil {
		return err
	}

	ctx.Cookie(&router.Cookie{
		Name:     c.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(c.Tokens.TTL()),
		HTTPOnly: true,
		Secure:   c.SecureCookie,
		SameSite: "Lax",
	})
	return nil
}

func sessionFrom(ctx router.Context) *Session {
	sess, _ := ctx.Locals(sessionLocalKey).(*Session)
	return sess
}
