// Package oauth links external identity-provider logins to local accounts.
// A provider turns an authorization code into a verified profile; the
// linker finds or creates the matching account and signs it in.
package oauth

import "context"

// Profile is the minimal identity a provider must vouch for. Email is the
// linking key.
type Profile struct {
	Email       string
	DisplayName string
}

// IdentityProvider exchanges an authorization code for a verified profile.
type IdentityProvider interface {
	// Name identifies the provider in logs and audit events.
	Name() string
	// AuthCodeURL returns the provider's consent page URL for the given
	// anti-forgery state.
	AuthCodeURL(state string) string
	// Exchange redeems an authorization code directly against the
	// provider and fetches the profile it identifies.
	Exchange(ctx context.Context, code string) (Profile, error)
}
