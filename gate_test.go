package authsync_test

import (
	"testing"

	authsync "github.com/goliatone/go-authsync"
	"github.com/stretchr/testify/assert"
)

func TestGateDecide(t *testing.T) {
	user := &authsync.ViewUser{UID: "u1"}

	loading := authsync.LoadingState()
	signedOut := authsync.AuthViewState{}
	signedIn := authsync.AuthViewState{User: user, IsAuthenticated: true}

	tests := []struct {
		name     string
		gate     authsync.Gate
		state    authsync.AuthViewState
		expected authsync.Decision
	}{
		{"loading wins when auth required", authsync.Gate{RequireAuth: true}, loading, authsync.DecisionLoading},
		{"loading wins when auth optional", authsync.Gate{}, loading, authsync.DecisionLoading},
		{"signed out on protected page", authsync.Gate{RequireAuth: true}, signedOut, authsync.DecisionLoginPrompt},
		{"signed out on public page", authsync.Gate{}, signedOut, authsync.DecisionRender},
		{"signed in on protected page", authsync.Gate{RequireAuth: true}, signedIn, authsync.DecisionRender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.gate.Decide(tt.state))
		})
	}
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "loading", authsync.DecisionLoading.String())
	assert.Equal(t, "login", authsync.DecisionLoginPrompt.String())
	assert.Equal(t, "render", authsync.DecisionRender.String())
}
