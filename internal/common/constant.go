// Package common contains shared constants and errors used across up2git
// components.
package common

// AuthorizationHeaderName carries the access token on outbound requests to
// the remote store.
const AuthorizationHeaderName = "Authorization"

// AuthorizationScheme prefixes the access token in AuthorizationHeaderName.
const AuthorizationScheme = "token"

// AcceptHeaderValue selects the v3 JSON media type of the contents API.
const AcceptHeaderValue = "application/vnd.github.v3+json"
