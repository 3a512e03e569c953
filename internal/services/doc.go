// Package services defines the [Identity] interface for OAuth2 identity providers and implements it
// with [IdentityService].
//
// # Login Flow
//
//  1. [IdentityService.AuthURL] builds the consent URL with a random state
//  2. The provider redirects to the callback with a code, see server.OAuthHandler
//  3. [IdentityService.Exchange] trades the code for an [oauth2.Token]
//  4. [IdentityService.Profile] reads the userinfo endpoint with the token's client
//
// Userinfo responses may use either plain (id, username, avatar_url) or OpenID Connect
// (sub, preferred_username, picture) field names.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrMissingConfig] : client credentials or endpoints not configured
//   - [shared.ErrAuthFailed] : code exchange failed or userinfo rejected
//   - [shared.ErrTokenExpired] : userinfo returned 401
//   - [shared.ErrNotAuthenticated] : no token supplied
package services
