package effects

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// HandlerFunc applies one effect kind's payload.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Registry dispatches winning-proposal effects by kind. Unregistered kinds
// fall back to a structured log line so measurement results are observable
// even before real side effects are wired.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[string]HandlerFunc),
		logger:   logger,
	}
}

// Register installs the handler for an effect kind, replacing any previous
// handler for the same kind.
func (r *Registry) Register(kind string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.TrimSpace(kind)] = handler
}

func (r *Registry) Apply(ctx context.Context, kind string, payload []byte) error {
	kind = strings.TrimSpace(kind)
	r.mu.RLock()
	handler, ok := r.handlers[kind]
	r.mu.RUnlock()
	if !ok {
		r.logger.Info("no effect handler registered, recording only",
			"event", "engine_effect_recorded",
			"module", "settlement-core/superposition-engine",
			"layer", "adapter",
			"effect_kind", kind,
			"payload_bytes", len(payload),
		)
		return nil
	}
	if err := handler(ctx, payload); err != nil {
		return fmt.Errorf("effect %q: %w", kind, err)
	}
	return nil
}
