package authsync

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrBridgeAlreadyStarted is returned by Bridge.Start on a second call.
var ErrBridgeAlreadyStarted = goerrors.New("auth state bridge already started", goerrors.CategoryOperation).
	WithTextCode("BRIDGE_ALREADY_STARTED")

// ErrBridgeStopped is returned when waiting on a bridge that was stopped.
var ErrBridgeStopped = goerrors.New("auth state bridge stopped", goerrors.CategoryOperation).
	WithTextCode("BRIDGE_STOPPED")

// ErrProfileBootstrapFailed is returned by Register when the account was
// created but its profile document could not be written. The metadata holds
// the orphaned uid.
var ErrProfileBootstrapFailed = goerrors.New("account created but profile could not be written", goerrors.CategoryInternal).
	WithTextCode("PROFILE_BOOTSTRAP_FAILED").
	WithCode(goerrors.CodeInternal)

// ErrInvalidForm is the base error for rejected login and registration forms.
var ErrInvalidForm = goerrors.New("invalid form submission", goerrors.CategoryValidation).
	WithTextCode("INVALID_FORM").
	WithCode(goerrors.CodeBadRequest)

// AuthErrorMessage is the state error published when a signed in identity
// could not be resolved to a profile.
const AuthErrorMessage = "Authentication error"

// HasTextCode reports whether err is a *goerrors.Error carrying code.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil {
		return richErr.TextCode == code
	}
	return false
}
