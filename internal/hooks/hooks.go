package hooks

import (
	"context"
	"fmt"
	"sync"
)

// HookType represents a generation lifecycle event.
type HookType string

const (
	// HookBeforeWrite runs after validation, before the pipeline file is
	// replaced.
	HookBeforeWrite HookType = "before_write"

	// HookAfterWrite runs once the new pipeline file is in place.
	HookAfterWrite HookType = "after_write"

	// HookValidationFailed runs when validation errors block a write.
	HookValidationFailed HookType = "validation_failed"
)

// Valid reports whether t is a known hook type.
func (t HookType) Valid() bool {
	switch t {
	case HookBeforeWrite, HookAfterWrite, HookValidationFailed:
		return true
	}
	return false
}

// Event is passed to every handler.
type Event struct {
	Path     string
	Status   string
	Output   []byte
	Errors   int
	Warnings int
	DryRun   bool
}

// HookHandler handles a hook event.
type HookHandler func(ctx context.Context, event Event) error

// HookManager manages lifecycle hooks.
type HookManager struct {
	mu       sync.RWMutex
	handlers map[HookType][]HookHandler
}

// NewHookManager creates an empty hook manager.
func NewHookManager() *HookManager {
	return &HookManager{handlers: make(map[HookType][]HookHandler)}
}

// RegisterHandler registers a handler for a hook type. Handlers run in
// registration order.
func (h *HookManager) RegisterHandler(hookType HookType, handler HookHandler) error {
	if !hookType.Valid() {
		return fmt.Errorf("unknown hook type %q", hookType)
	}
	if handler == nil {
		return fmt.Errorf("nil handler for hook %s", hookType)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[hookType] = append(h.handlers[hookType], handler)
	return nil
}

// Execute runs all handlers for hookType, stopping at the first error.
// A nil manager executes nothing.
func (h *HookManager) Execute(ctx context.Context, hookType HookType, event Event) error {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	handlers := append([]HookHandler(nil), h.handlers[hookType]...)
	h.mu.RUnlock()

	for _, handler := range handlers {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := handler(ctx, event); err != nil {
			return fmt.Errorf("hook %s failed: %w", hookType, err)
		}
	}
	return nil
}

// Count returns the number of handlers registered for hookType.
func (h *HookManager) Count(hookType HookType) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[hookType])
}
