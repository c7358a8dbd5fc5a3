package authsync

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Identity provider error codes. Providers report rejections with these as
// the TextCode of a *goerrors.Error.
const (
	CodeUserNotFound          = "auth/user-not-found"
	CodeWrongPassword         = "auth/wrong-password"
	CodeInvalidEmail          = "auth/invalid-email"
	CodeTooManyRequests       = "auth/too-many-requests"
	CodeConfigurationNotFound = "auth/configuration-not-found"
	CodeInvalidAPIKey         = "auth/invalid-api-key"
	CodeProjectNotFound       = "auth/project-not-found"
	CodeEmailAlreadyInUse     = "auth/email-already-in-use"
	CodeWeakPassword          = "auth/weak-password"
	CodeNetworkRequestFailed  = "auth/network-request-failed"
)

const (
	msgConfigurationNotFound = "Identity provider configuration not found. Please check the setup instructions."
	msgInvalidAPIKey         = "Invalid identity provider API key. Please check your environment configuration."
	msgProjectNotFound       = "Identity provider project not found. Please verify your project configuration."
	msgConfigurationError    = "Identity provider configuration error. Please check the setup instructions."
	msgInvalidEmail          = "Invalid email address"

	msgLoginFailed        = "Login failed"
	msgRegistrationFailed = "Registration failed"
	msgLogoutFailed       = "Logout failed"
)

var loginMessages = map[string]string{
	CodeUserNotFound:          "No account found with this email",
	CodeWrongPassword:         "Incorrect password",
	CodeInvalidEmail:          msgInvalidEmail,
	CodeTooManyRequests:       "Too many failed attempts. Please try again later",
	CodeConfigurationNotFound: msgConfigurationNotFound,
	CodeInvalidAPIKey:         msgInvalidAPIKey,
	CodeProjectNotFound:       msgProjectNotFound,
}

var registrationMessages = map[string]string{
	CodeEmailAlreadyInUse:     "An account with this email already exists",
	CodeInvalidEmail:          msgInvalidEmail,
	CodeWeakPassword:          "Password should be at least 6 characters",
	CodeConfigurationNotFound: msgConfigurationNotFound,
	CodeInvalidAPIKey:         msgInvalidAPIKey,
	CodeProjectNotFound:       msgProjectNotFound,
}

var codeCategories = map[string]goerrors.Category{
	CodeUserNotFound:          goerrors.CategoryAuth,
	CodeWrongPassword:         goerrors.CategoryAuth,
	CodeInvalidEmail:          goerrors.CategoryBadInput,
	CodeTooManyRequests:       goerrors.CategoryRateLimit,
	CodeConfigurationNotFound: goerrors.CategoryInternal,
	CodeInvalidAPIKey:         goerrors.CategoryInternal,
	CodeProjectNotFound:       goerrors.CategoryInternal,
	CodeEmailAlreadyInUse:     goerrors.CategoryConflict,
	CodeWeakPassword:          goerrors.CategoryValidation,
	CodeNetworkRequestFailed:  goerrors.CategoryOperation,
}

// NewProviderError builds the error an IdentityProvider returns for a
// rejection identified by code.
func NewProviderError(code, message string) *goerrors.Error {
	category, ok := codeCategories[code]
	if !ok {
		category = goerrors.CategoryAuth
	}
	return goerrors.New(message, category).WithTextCode(code)
}

// ProviderErrorCode extracts the provider code from err, if any.
func ProviderErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode
	}
	return ""
}

func providerErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.Message
	}
	return err.Error()
}

// LoginErrorMessage maps a SignIn rejection to a user facing message.
func LoginErrorMessage(err error) string {
	return mapProviderError(err, loginMessages, msgLoginFailed)
}

// RegistrationErrorMessage maps a SignUp rejection to a user facing message.
func RegistrationErrorMessage(err error) string {
	return mapProviderError(err, registrationMessages, msgRegistrationFailed)
}

// LogoutErrorMessage returns the raw provider message or a generic one.
func LogoutErrorMessage(err error) string {
	if msg := providerErrorMessage(err); msg != "" {
		return msg
	}
	return msgLogoutFailed
}

func mapProviderError(err error, table map[string]string, fallback string) string {
	if msg, ok := table[ProviderErrorCode(err)]; ok {
		return msg
	}

	raw := providerErrorMessage(err)
	if strings.Contains(raw, "configuration") || strings.Contains(raw, "API key") {
		return msgConfigurationError
	}
	if raw == "" {
		return fallback
	}
	return raw
}
