// Package kitrouter selects which kit.Kit serves a given model and
// resolves it against policy constraints, using an ordered registry
// with RWMutex-protected lookups.
package kitrouter

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentd/core/pkg/kit"
)

// Router holds an ordered set of registered kits and resolves a model
// policy against their combined model lists.
type Router struct {
	mu   sync.RWMutex
	kits []registered
}

type registered struct {
	name string
	k    kit.Kit
}

// New creates an empty Router.
func New() *Router {
	return &Router{}
}

// Register adds a kit under the given name. Registration order is the
// order in which Resolve tries kits.
func (r *Router) Register(name string, k kit.Kit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kits = append(r.kits, registered{name: name, k: k})
}

// Get returns a kit by name, or nil if unregistered.
func (r *Router) Get(name string) kit.Kit {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rk := range r.kits {
		if rk.name == name {
			return rk.k
		}
	}
	return nil
}

// List returns all registered kit names in registration order.
func (r *Router) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.kits))
	for i, rk := range r.kits {
		names[i] = rk.name
	}
	return names
}

// ListAllModelRecords queries every registered kit for its model list.
func (r *Router) ListAllModelRecords(ctx context.Context) (map[string][]kit.ModelRecord, error) {
	r.mu.RLock()
	kits := append([]registered(nil), r.kits...)
	r.mu.RUnlock()

	out := make(map[string][]kit.ModelRecord, len(kits))
	for _, rk := range kits {
		records, err := rk.k.ListModelRecords(ctx)
		if err != nil {
			return nil, fmt.Errorf("kitrouter: list models for %s: %w", rk.name, err)
		}
		out[rk.name] = records
	}
	return out, nil
}

// Resolve is the model_policy resolver described in §4.6.1 and §4.7.6:
// in registration order, it lists one kit's model records and asks that
// kit to resolve against constraints, stopping at the first kit that
// succeeds; later kits are not queried. It returns the winning kit
// alongside its resolution.
func (r *Router) Resolve(ctx context.Context, constraints kit.Constraints, preferred []string) (kit.Kit, kit.Resolution, error) {
	r.mu.RLock()
	kits := append([]registered(nil), r.kits...)
	r.mu.RUnlock()

	if len(kits) == 0 {
		return nil, kit.Resolution{}, fmt.Errorf("kitrouter: no kits registered")
	}

	var lastErr error
	for _, rk := range kits {
		records, err := rk.k.ListModelRecords(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		res, err := rk.k.Resolve(records, constraints, preferred)
		if err != nil {
			lastErr = err
			continue
		}
		return rk.k, res, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("kitrouter: no kit could resolve a model")
	}
	return nil, kit.Resolution{}, lastErr
}
