package auth0

import (
	"errors"
	"strings"

	"github.com/auth0/go-auth0/authentication"
	authsync "github.com/goliatone/go-authsync"
	goerrors "github.com/goliatone/go-errors"
)

// translateError maps Auth0 authentication errors onto the provider codes
// used by authsync so the user facing messages stay the same across providers.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var authErr *authentication.Error
	if !errors.As(err, &authErr) {
		if strings.Contains(strings.ToLower(err.Error()), "request failed") {
			return authsync.NewProviderError(authsync.CodeNetworkRequestFailed, err.Error())
		}
		return goerrors.Wrap(err, goerrors.CategoryOperation, "auth0 request failed")
	}

	code := ""
	switch authErr.Err {
	case "invalid_grant":
		code = authsync.CodeWrongPassword
	case "too_many_attempts":
		code = authsync.CodeTooManyRequests
	case "user_exists", "invalid_signup":
		code = authsync.CodeEmailAlreadyInUse
	case "invalid_password", "password_strength_error":
		code = authsync.CodeWeakPassword
	case "unauthorized_client":
		code = authsync.CodeConfigurationNotFound
	case "invalid_client", "access_denied":
		code = authsync.CodeInvalidAPIKey
	default:
		return goerrors.Wrap(err, goerrors.CategoryOperation, authErr.Message).
			WithMetadata(map[string]any{
				"auth0_error": authErr.Err,
				"status":      authErr.StatusCode,
			})
	}

	perr := authsync.NewProviderError(code, authErr.Message)
	perr.Source = err
	return perr
}
