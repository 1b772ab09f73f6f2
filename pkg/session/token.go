// Package session supplies the anti-forgery token that mutating requests
// to the accounting service must carry.
package session

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrNoToken is returned when no anti-forgery token is available.
var ErrNoToken = errors.New("csrf token is not available")

// TokenProvider hands out the current anti-forgery token.
type TokenProvider interface {
	CSRFToken(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) CSRFToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static always returns the same token.
func Static(token string) TokenProvider {
	return TokenFunc(func(context.Context) (string, error) {
		if strings.TrimSpace(token) == "" {
			return "", ErrNoToken
		}
		return token, nil
	})
}

// FromEnv reads the token from the named environment variable on every call,
// so a token rotated by an external login helper is picked up.
func FromEnv(name string) TokenProvider {
	return TokenFunc(func(context.Context) (string, error) {
		token := strings.TrimSpace(os.Getenv(name))
		if token == "" {
			return "", ErrNoToken
		}
		return token, nil
	})
}

// First returns the first token any of the providers can supply.
func First(providers ...TokenProvider) TokenProvider {
	return TokenFunc(func(ctx context.Context) (string, error) {
		for _, p := range providers {
			if p == nil {
				continue
			}
			token, err := p.CSRFToken(ctx)
			if err == nil && token != "" {
				return token, nil
			}
			if err != nil && !errors.Is(err, ErrNoToken) {
				return "", err
			}
		}
		return "", ErrNoToken
	})
}
