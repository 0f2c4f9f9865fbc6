package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/go-telegram/bot/models"
)

// CommandFunc handles one routed message and returns the message it sent, if any.
type CommandFunc func(ctx context.Context, msg *models.Message) (*models.Message, error)

// Registry maps command tokens to handlers. It is immutable once built and
// safe for concurrent lookups.
type Registry struct {
	routes   map[string]CommandFunc
	fallback CommandFunc
}

// NewRegistry copies routes into a new Registry. fallback receives every
// message whose token has no route.
func NewRegistry(routes map[string]CommandFunc, fallback CommandFunc) (*Registry, error) {
	if fallback == nil {
		return nil, errors.New("fallback handler is required")
	}

	copied := make(map[string]CommandFunc, len(routes))
	for token, fn := range routes {
		if token == "" {
			return nil, errors.New("command token must not be empty")
		}
		if fn == nil {
			return nil, fmt.Errorf("command %s has no handler", token)
		}
		copied[token] = fn
	}

	return &Registry{
		routes:   copied,
		fallback: fallback,
	}, nil
}

// Lookup returns the handler registered for token. Matching is exact and
// case-sensitive.
func (r *Registry) Lookup(token string) (CommandFunc, bool) {
	fn, ok := r.routes[token]
	return fn, ok
}

// Dispatch runs the handler for token, or the fallback when none matches.
// Handler errors are returned unchanged.
func (r *Registry) Dispatch(ctx context.Context, token string, msg *models.Message) (*models.Message, error) {
	if fn, ok := r.Lookup(token); ok {
		return fn(ctx, msg)
	}
	return r.fallback(ctx, msg)
}

// Tokens lists the registered command tokens in sorted order.
func (r *Registry) Tokens() []string {
	tokens := make([]string, 0, len(r.routes))
	for token := range r.routes {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}
