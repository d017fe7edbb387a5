package hooks

import (
	"context"
	"fmt"

	"github.com/silkroute/storefront-backend/pkg/logger"
)

// Event names fired by the transactional core.
const (
	EventOrderCreated     = "order.created"
	EventPaymentConfirmed = "payment.confirmed"
	EventPaymentFailed    = "payment.failed"
	EventStockMoved       = "stock.moved"
)

// Event carries the name and payload handed to post-commit hooks.
type Event struct {
	Name    string
	Payload any
}

// Hook runs after the authoritative state change has committed. Hooks must
// tolerate redelivery-free at-most-once semantics: a crash between commit and
// hook execution drops the hook silently.
type Hook func(ctx context.Context, event Event)

type registration struct {
	name string
	fn   Hook
}

// Registry holds an ordered post-commit hook list. Side effects such as cache
// invalidation register here instead of interleaving with request handling.
type Registry struct {
	hooks []registration
	logg  *logger.Logger
}

// NewRegistry builds an empty hook registry.
func NewRegistry(logg *logger.Logger) *Registry {
	return &Registry{logg: logg}
}

// Register appends a named hook. Registration order is execution order.
func (r *Registry) Register(name string, fn Hook) {
	if r == nil || fn == nil {
		return
	}
	r.hooks = append(r.hooks, registration{name: name, fn: fn})
}

// Fire runs every hook sequentially. A panicking hook is logged and skipped;
// it never propagates into (or rolls back) the committed operation.
func (r *Registry) Fire(ctx context.Context, event Event) {
	if r == nil {
		return
	}
	for _, reg := range r.hooks {
		r.fireOne(ctx, reg, event)
	}
}

func (r *Registry) fireOne(ctx context.Context, reg registration, event Event) {
	defer func() {
		if rec := recover(); rec != nil && r.logg != nil {
			ctx = r.logg.WithFields(ctx, map[string]any{
				"hook":  reg.name,
				"event": event.Name,
				"panic": rec,
			})
			r.logg.Error(ctx, "hook.panic", fmt.Errorf("panic: %v", rec))
		}
	}()
	reg.fn(ctx, event)
}
