package auth

import (
	"context"
	"fmt"
	"net/http"
)

// SetAuthorization sets "Authorization: Bearer <token>" on h when ts yields a
// non-empty token. A nil ts leaves h untouched.
func SetAuthorization(ctx context.Context, h http.Header, ts TokenSource) error {
	if ts == nil {
		return nil
	}
	token, err := ts.Token(ctx)
	if err != nil {
		return fmt.Errorf("auth: resolve token: %w", err)
	}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return nil
}
