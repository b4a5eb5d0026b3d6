package intercept

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jeeves-cluster-organization/callguard/coreengine/policy"
)

// Target invokes a method by key. It is the only thing the pipeline needs
// from the object being intercepted.
type Target interface {
	Invoke(ctx context.Context, key policy.MethodKey, args []any) (any, error)
}

// TargetFunc adapts a function to the Target interface.
type TargetFunc func(ctx context.Context, key policy.MethodKey, args []any) (any, error)

// Invoke implements Target.
func (f TargetFunc) Invoke(ctx context.Context, key policy.MethodKey, args []any) (any, error) {
	return f(ctx, key, args)
}

// MethodFunc is one callable method of a target.
type MethodFunc func(ctx context.Context, args []any) (any, error)

// MethodTable is a registration-table Target: methods are registered by key
// and invoked by key.
type MethodTable struct {
	methods map[policy.MethodKey]MethodFunc
	mu      sync.RWMutex
}

// NewMethodTable creates an empty MethodTable.
func NewMethodTable() *MethodTable {
	return &MethodTable{
		methods: make(map[policy.MethodKey]MethodFunc),
	}
}

// Register registers fn under key, replacing any existing method.
func (t *MethodTable) Register(key policy.MethodKey, fn MethodFunc) error {
	if key.IsZero() {
		return fmt.Errorf("method name is required")
	}
	if fn == nil {
		return fmt.Errorf("method func is required for '%s'", key)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.methods[key] = fn
	return nil
}

// RegisterType registers several methods of one type, keyed by method name.
func (t *MethodTable) RegisterType(typeName string, methods map[string]MethodFunc) error {
	for name, fn := range methods {
		if err := t.Register(policy.NewMethodKey(typeName, name), fn); err != nil {
			return err
		}
	}
	return nil
}

// Invoke implements Target. Unknown keys yield a *NoMethodError.
func (t *MethodTable) Invoke(ctx context.Context, key policy.MethodKey, args []any) (any, error) {
	t.mu.RLock()
	fn, exists := t.methods[key]
	t.mu.RUnlock()

	if !exists {
		return nil, NewNoMethodError(key)
	}
	return fn(ctx, args)
}

// Has checks if a method is registered.
func (t *MethodTable) Has(key policy.MethodKey) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, exists := t.methods[key]
	return exists
}

// List returns all registered keys sorted by their string form.
func (t *MethodTable) List() []policy.MethodKey {
	t.mu.RLock()
	keys := make([]policy.MethodKey, 0, len(t.methods))
	for k := range t.methods {
		keys = append(keys, k)
	}
	t.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Ensure MethodTable implements Target.
var _ Target = (*MethodTable)(nil)
