package rules

import (
	"context"

	"github.com/sigepol/sigepol-engine/pkg/models"
)

// Handler executes one business rule and returns its structured result.
type Handler func(ctx context.Context, rule *models.Rule) (map[string]any, error)

// Registry maps rule codes to handlers. It is built once at process start,
// injected into the executor, and read-only afterwards.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a code. Registering the same code again
// replaces the previous handler.
func (r *Registry) Register(code string, h Handler) {
	r.handlers[code] = h
}

// Lookup returns the handler for a code.
func (r *Registry) Lookup(code string) (Handler, bool) {
	h, ok := r.handlers[code]
	return h, ok
}

// Codes lists the registered rule codes.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.handlers))
	for code := range r.handlers {
		codes = append(codes, code)
	}
	return codes
}
