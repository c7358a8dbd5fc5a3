// Package auth0 implements authsync.IdentityProvider on top of an Auth0
// tenant, using the resource owner password grant for sign in and the
// database connection signup endpoint for sign up.
//
// Each Client is one session. Auth state transitions are published to
// subscribers the same way the local provider does, so a Bridge can sit on
// top of either.
package auth0
