package secret

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Resolver errors.
var (
	ErrProviderNotRegistered = errors.New("secret: provider not registered")
	ErrEmptyValue            = errors.New("secret: provider returned empty value")
)

const refPrefix = "secretref:"

// Resolver expands environment references and resolves secret references
// through its providers.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver over providers. With strict set, a
// provider returning "" is an error.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider, len(providers)), strict: strict}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// DefaultResolver resolves env and file references strictly.
func DefaultResolver() *Resolver {
	return NewResolver(true, NewEnvProvider(), NewFileProvider())
}

// ResolveValue expands value and resolves its secret references. A value
// that is exactly one reference resolves to the secret verbatim, so
// multi-line secrets survive.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if name, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolve(ctx, name, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveFields resolves each named field in place. Empty fields are
// skipped. Errors name the field but never its value.
func (r *Resolver) ResolveFields(ctx context.Context, fields map[string]*string) error {
	var errs []error
	for name, ptr := range fields {
		if ptr == nil || *ptr == "" {
			continue
		}
		resolved, err := r.ResolveValue(ctx, *ptr)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %s: %w", name, err))
			continue
		}
		*ptr = resolved
	}
	return errors.Join(errs...)
}

// Close closes every provider.
func (r *Resolver) Close() error {
	var errs []error
	for _, p := range r.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// ParseSecretRef splits a whole-value reference secretref:<provider>:<ref>.
func ParseSecretRef(value string) (provider, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, refPrefix)
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" || strings.ContainsAny(rest, " \t\r\n") {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) resolve(ctx context.Context, name, ref string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptyValue, name)
	}
	return v, nil
}

// inlineRef matches a reference embedded in surrounding text. A trailing
// "." ends the sentence, not the ref.
var inlineRef = regexp.MustCompile(`secretref:([A-Za-z0-9_-]+):([A-Za-z0-9_./~-]+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	var b strings.Builder
	last := 0
	for _, m := range inlineRef.FindAllStringSubmatchIndex(value, -1) {
		ref := strings.TrimRight(value[m[4]:m[5]], ".")
		if ref == "" {
			continue
		}
		m[1] = m[4] + len(ref)
		v, err := r.resolve(ctx, value[m[2]:m[3]], ref)
		if err != nil {
			return "", err
		}
		b.WriteString(value[last:m[0]])
		b.WriteString(v)
		last = m[1]
	}
	if last == 0 {
		return value, nil
	}
	b.WriteString(value[last:])
	return b.String(), nil
}
