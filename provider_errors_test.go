package authsync_test

import (
	"errors"
	"testing"

	authsync "github.com/goliatone/go-authsync"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
)

func TestLoginErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"user not found", authsync.NewProviderError(authsync.CodeUserNotFound, "x"), "No account found with this email"},
		{"wrong password", authsync.NewProviderError(authsync.CodeWrongPassword, "x"), "Incorrect password"},
		{"invalid email", authsync.NewProviderError(authsync.CodeInvalidEmail, "x"), "Invalid email address"},
		{"too many requests", authsync.NewProviderError(authsync.CodeTooManyRequests, "x"), "Too many failed attempts. Please try again later"},
		{"configuration not found", authsync.NewProviderError(authsync.CodeConfigurationNotFound, "x"), "Identity provider configuration not found. Please check the setup instructions."},
		{"invalid api key", authsync.NewProviderError(authsync.CodeInvalidAPIKey, "x"), "Invalid identity provider API key. Please check your environment configuration."},
		{"project not found", authsync.NewProviderError(authsync.CodeProjectNotFound, "x"), "Identity provider project not found. Please verify your project configuration."},
		{"unknown code with configuration text", authsync.NewProviderError("auth/internal-error", "bad configuration detected"), "Identity provider configuration error. Please check the setup instructions."},
		{"unknown code with api key text", authsync.NewProviderError("auth/internal-error", "missing API key"), "Identity provider configuration error. Please check the setup instructions."},
		{"unknown code passes raw message", authsync.NewProviderError(authsync.CodeNetworkRequestFailed, "network down"), "network down"},
		{"empty message", authsync.NewProviderError("auth/internal-error", ""), "Login failed"},
		{"plain error", errors.New("socket closed"), "socket closed"},
		{"register only code is not mapped on login", authsync.NewProviderError(authsync.CodeEmailAlreadyInUse, "in use"), "in use"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, authsync.LoginErrorMessage(tt.err))
		})
	}
}

func TestRegistrationErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"email in use", authsync.NewProviderError(authsync.CodeEmailAlreadyInUse, "x"), "An account with this email already exists"},
		{"invalid email", authsync.NewProviderError(authsync.CodeInvalidEmail, "x"), "Invalid email address"},
		{"weak password", authsync.NewProviderError(authsync.CodeWeakPassword, "x"), "Password should be at least 6 characters"},
		{"invalid api key", authsync.NewProviderError(authsync.CodeInvalidAPIKey, "x"), "Invalid identity provider API key. Please check your environment configuration."},
		{"configuration text", authsync.NewProviderError("auth/other", "configuration missing"), "Identity provider configuration error. Please check the setup instructions."},
		{"empty message", authsync.NewProviderError("auth/other", ""), "Registration failed"},
		{"login only code is not mapped", authsync.NewProviderError(authsync.CodeWrongPassword, "raw"), "raw"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, authsync.RegistrationErrorMessage(tt.err))
		})
	}
}

func TestLogoutErrorMessage(t *testing.T) {
	assert.Equal(t, "session gone", authsync.LogoutErrorMessage(errors.New("session gone")))
	assert.Equal(t, "Logout failed", authsync.LogoutErrorMessage(authsync.NewProviderError("auth/x", "")))
}

func TestNewProviderError(t *testing.T) {
	err := authsync.NewProviderError(authsync.CodeTooManyRequests, "slow down")

	assert.Equal(t, authsync.CodeTooManyRequests, err.TextCode)
	assert.Equal(t, goerrors.CategoryRateLimit, err.Category)
	assert.Equal(t, authsync.CodeTooManyRequests, authsync.ProviderErrorCode(err))
	assert.Equal(t, "", authsync.ProviderErrorCode(errors.New("plain")))
}
