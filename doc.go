// Package authsync keeps a per session auth view state in sync with an
// identity provider and a document store holding user profiles.
//
// Flow:
//   - Actions call the IdentityProvider (login, registration, logout). They
//     never write auth state themselves.
//   - Bridge subscribes to the provider's auth state. On sign in it resolves
//     the profile through ProfileStore, creating it on first sight, projects
//     it with ToViewUser and publishes an AuthViewState.
//   - Gate turns an AuthViewState into a page decision: loading, login
//     prompt or render.
//
// Profile resolution failures keep the user signed in with a fallback view
// user and the "Authentication error" message. WithFailClosed switches the
// bridge to publishing a signed out state instead.
//
// Activity sinks:
//   - ActivitySink receives login, registration, logout and profile events.
//     Sinks run best effort (errors are logged) so they never block an action.
package authsync
