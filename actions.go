package authsync

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// Result is the outcome of a user facing auth action.
type Result struct {
	Success bool      `json:"success"`
	User    *Identity `json:"user,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// RegistrationFields carry the profile details collected at sign up.
type RegistrationFields struct {
	FirstName string
	LastName  string
	Phone     string
	Role      Role
}

// Actions performs login, registration and logout against an identity
// provider. Auth state is not written here, the Bridge observes the provider.
type Actions struct {
	provider IdentityProvider
	profiles ProfileWriter
	logger   Logger
	activity ActivitySink
}

func NewActions(provider IdentityProvider, profiles ProfileWriter) *Actions {
	return &Actions{
		provider: provider,
		profiles: profiles,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (a *Actions) WithLogger(l Logger) *Actions {
	a.logger = normalizeLogger(l)
	return a
}

func (a *Actions) WithActivitySink(sink ActivitySink) *Actions {
	a.activity = normalizeActivitySink(sink)
	return a
}

// Login signs in with email and password. Rejections are reported in the
// Result, never as an error. On success lastLoginAt is stamped best effort.
func (a *Actions) Login(ctx context.Context, email, password string) Result {
	identity, err := a.provider.SignIn(ctx, email, password)
	if err != nil {
		msg := LoginErrorMessage(err)
		a.logger.Warn("login failed", "email", email, "code", ProviderErrorCode(err), "error", err)
		recordActivity(ctx, a.activity, a.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Email:     email,
			Metadata: map[string]any{
				"code":    ProviderErrorCode(err),
				"message": msg,
			},
		})
		return Result{Success: false, Error: msg}
	}

	if a.profiles != nil && identity != nil {
		if err := a.profiles.TouchLastLogin(ctx, identity.UID); err != nil {
			a.logger.Warn("failed to record last login", "uid", identity.UID, "error", err)
		}
	}

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    identityUID(identity),
		Email:     email,
	})

	return Result{Success: true, User: identity}
}

// Register creates an account and its profile. Provider rejections are
// reported in the Result. A profile write failure after the account exists
// is returned as ErrProfileBootstrapFailed, the account is left in place.
func (a *Actions) Register(ctx context.Context, email, password string, fields *RegistrationFields) (Result, error) {
	identity, err := a.provider.SignUp(ctx, email, password)
	if err != nil {
		msg := RegistrationErrorMessage(err)
		a.logger.Warn("registration failed", "email", email, "code", ProviderErrorCode(err), "error", err)
		recordActivity(ctx, a.activity, a.logger, ActivityEvent{
			EventType: ActivityEventRegisterFailure,
			Email:     email,
			Metadata: map[string]any{
				"code":    ProviderErrorCode(err),
				"message": msg,
			},
		})
		return Result{Success: false, Error: msg}, nil
	}

	overrides := ProfileOverrides{}
	if fields != nil {
		if fields.Role != "" {
			role := fields.Role
			overrides.Role = &role
		}
		overrides.Profile = &ProfileInfo{
			FirstName: fields.FirstName,
			LastName:  fields.LastName,
			Phone:     fields.Phone,
		}
	}

	uid := identityUID(identity)
	if _, err := a.profiles.Create(ctx, uid, email, overrides); err != nil {
		a.logger.Error("profile bootstrap failed after sign up", "uid", uid, "email", email, "error", err)
		recordActivity(ctx, a.activity, a.logger, ActivityEvent{
			EventType: ActivityEventProfileBootstrapGap,
			UserID:    uid,
			Email:     email,
			Metadata:  map[string]any{"error": err.Error()},
		})

		bootErr := ErrProfileBootstrapFailed.Clone()
		bootErr.Source = err
		return Result{}, bootErr.WithMetadata(map[string]any{
			"uid":   uid,
			"email": email,
			"cause": err.Error(),
		})
	}

	event := ActivityEvent{
		EventType: ActivityEventRegisterSuccess,
		UserID:    uid,
		Email:     email,
	}
	if fields != nil {
		if phone, ok := NormalizePhone(fields.Phone, DefaultPhoneRegion); ok {
			event.Metadata = map[string]any{"phone_e164": phone}
		}
	}
	recordActivity(ctx, a.activity, a.logger, event)

	return Result{Success: true, User: identity}, nil
}

// Logout ends the provider session.
func (a *Actions) Logout(ctx context.Context) Result {
	if err := a.provider.SignOut(ctx); err != nil {
		msg := LogoutErrorMessage(err)
		a.logger.Warn("logout failed", "error", err)
		return Result{Success: false, Error: msg}
	}

	recordActivity(ctx, a.activity, a.logger, ActivityEvent{
		EventType: ActivityEventLogout,
	})

	return Result{Success: true}
}

func identityUID(identity *Identity) string {
	if identity == nil {
		return ""
	}
	return identity.UID
}

// IsProfileBootstrapFailure reports whether err came from a Register whose
// profile write failed.
func IsProfileBootstrapFailure(err error) bool {
	return HasTextCode(err, ErrProfileBootstrapFailed.TextCode)
}

// OrphanedUID returns the uid recorded on a profile bootstrap failure.
func OrphanedUID(err error) string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) || richErr == nil {
		return ""
	}
	uid, _ := richErr.Metadata["uid"].(string)
	return uid
}
