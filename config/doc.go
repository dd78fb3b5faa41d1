// Package config loads the process configuration.
//
// Values are layered, later layers winning: built-in defaults, an optional
// YAML file, a .env file, the process environment, and finally secret
// resolution of credential fields (${VAR} expansion and secretref:env:NAME
// or secretref:file:/path references). A loaded Config is read-only.
package config
