package auth

import (
	"context"
	"strings"
)

// TokenSource yields the bearer token for upstream requests.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Token must honor cancellation when it performs I/O.
// - Errors: an empty token with a nil error means "send no credentials".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed token, typically a personal access token.
type StaticToken string

// Token returns the trimmed token.
func (s StaticToken) Token(context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

var (
	_ TokenSource = StaticToken("")
	_ TokenSource = TokenSourceFunc(nil)
)
