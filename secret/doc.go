// Package secret resolves credentials referenced from configuration.
//
// A configuration value is first expanded against the environment
// (ExpandEnvStrict), then any secret reference in it is resolved through a
// Provider:
//
//   - Full value:  secretref:env:GITHUB_TOKEN
//   - From a file: secretref:file:/run/secrets/github-app.pem
//   - Inline use:  Bearer secretref:env:GITHUB_TOKEN
//
// Providers never log the values they return.
package secret
