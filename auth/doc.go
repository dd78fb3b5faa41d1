// Package auth supplies upstream API credentials.
//
// A TokenSource yields the bearer token attached to upstream requests.
// StaticToken serves a personal access token; AppInstallationSource mints
// GitHub App installation tokens from an RS256-signed app JWT and caches
// them until shortly before they expire.
package auth
