package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// ProcessorRegistry maps file extensions to a registered ProcessorPlugin.
// Registration is idempotent by name: re-registering a plugin under a
// name already in use replaces the previous registration (calling its
// destroy first) rather than erroring, matching the "idempotent by name"
// requirement for plugin registration.
type ProcessorRegistry struct {
	mu      sync.RWMutex
	byExt   map[string]ProcessorPlugin
	byName  map[string]ProcessorPlugin
}

// NewProcessorRegistry builds an empty processor registry.
func NewProcessorRegistry() *ProcessorRegistry {
	return &ProcessorRegistry{
		byExt:  make(map[string]ProcessorPlugin),
		byName: make(map[string]ProcessorPlugin),
	}
}

// Register initializes p with config and binds it to every extension it
// declares. If a plugin with the same name is already registered, it is
// destroyed first and replaced.
func (r *ProcessorRegistry) Register(p ProcessorPlugin, config map[string]interface{}) error {
	if p == nil {
		return fmt.Errorf("plugin: cannot register nil processor plugin")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin: processor plugin name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		_ = existing.Destroy()
		for ext, bound := range r.byExt {
			if bound.Name() == name {
				delete(r.byExt, ext)
			}
		}
	}

	if err := p.Init(config); err != nil {
		return fmt.Errorf("plugin: init processor %q: %w", name, err)
	}

	r.byName[name] = p
	for _, ext := range p.Extensions() {
		r.byExt[ext] = p
	}
	return nil
}

// Get returns the plugin registered for extension, if any.
func (r *ProcessorRegistry) Get(extension string) (ProcessorPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byExt[extension]
	return p, ok
}

// Unregister destroys and removes the named plugin.
func (r *ProcessorRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byName[name]
	if !ok {
		return
	}
	_ = p.Destroy()
	delete(r.byName, name)
	for ext, bound := range r.byExt {
		if bound.Name() == name {
			delete(r.byExt, ext)
		}
	}
}

// List returns registered processor plugin names, sorted.
func (r *ProcessorRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close destroys every registered processor plugin, in name order, for a
// deterministic shutdown sequence.
func (r *ProcessorRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_ = r.byName[name].Destroy()
	}
	r.byName = make(map[string]ProcessorPlugin)
	r.byExt = make(map[string]ProcessorPlugin)
}

// EmbedderRegistry is a thread-safe, idempotent-by-name registry of
// EmbedderPlugin instances, mirroring embedding.Registry's shape.
type EmbedderRegistry struct {
	mu        sync.RWMutex
	embedders map[string]EmbedderPlugin
}

// NewEmbedderRegistry builds an empty embedder plugin registry.
func NewEmbedderRegistry() *EmbedderRegistry {
	return &EmbedderRegistry{embedders: make(map[string]EmbedderPlugin)}
}

// Register initializes p with config and registers it under p.Name(),
// replacing (and destroying) any existing registration with that name.
func (r *EmbedderRegistry) Register(p EmbedderPlugin, config map[string]interface{}) error {
	if p == nil {
		return fmt.Errorf("plugin: cannot register nil embedder plugin")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin: embedder plugin name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.embedders[name]; ok {
		_ = existing.Destroy()
	}
	if err := p.Init(config); err != nil {
		return fmt.Errorf("plugin: init embedder %q: %w", name, err)
	}
	r.embedders[name] = p
	return nil
}

// Get retrieves an embedder plugin by name.
func (r *EmbedderRegistry) Get(name string) (EmbedderPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.embedders[name]
	return p, ok
}

// Unregister destroys and removes the named embedder plugin.
func (r *EmbedderRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.embedders[name]; ok {
		_ = p.Destroy()
		delete(r.embedders, name)
	}
}

// List returns registered embedder plugin names, sorted.
func (r *EmbedderRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.embedders))
	for name := range r.embedders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close destroys every registered embedder plugin.
func (r *EmbedderRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.embedders {
		_ = p.Destroy()
	}
	r.embedders = make(map[string]EmbedderPlugin)
}

// RerankerRegistry keeps, per strategy, the list of RerankerPlugin
// instances bound to it in registration order.
type RerankerRegistry struct {
	mu       sync.RWMutex
	byName   map[string]RerankerPlugin
	byStrat  map[string][]RerankerPlugin
}

// NewRerankerRegistry builds an empty reranker plugin registry.
func NewRerankerRegistry() *RerankerRegistry {
	return &RerankerRegistry{
		byName:  make(map[string]RerankerPlugin),
		byStrat: make(map[string][]RerankerPlugin),
	}
}

// Register initializes p with config and appends it to every strategy it
// declares. Re-registering the same name first unregisters the previous
// binding so ordering reflects the most recent registration.
func (r *RerankerRegistry) Register(p RerankerPlugin, config map[string]interface{}) error {
	if p == nil {
		return fmt.Errorf("plugin: cannot register nil reranker plugin")
	}
	name := p.Name()
	if name == "" {
		return fmt.Errorf("plugin: reranker plugin name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		_ = existing.Destroy()
		r.removeLocked(name)
	}

	if err := p.Init(config); err != nil {
		return fmt.Errorf("plugin: init reranker %q: %w", name, err)
	}

	r.byName[name] = p
	for _, strat := range p.Strategies() {
		key := string(strat)
		r.byStrat[key] = append(r.byStrat[key], p)
	}
	return nil
}

func (r *RerankerRegistry) removeLocked(name string) {
	for strat, plugins := range r.byStrat {
		filtered := plugins[:0]
		for _, p := range plugins {
			if p.Name() != name {
				filtered = append(filtered, p)
			}
		}
		r.byStrat[strat] = filtered
	}
	delete(r.byName, name)
}

// ForStrategy returns the plugins bound to strategy, in registration
// order.
func (r *RerankerRegistry) ForStrategy(strategy string) []RerankerPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bound := r.byStrat[strategy]
	out := make([]RerankerPlugin, len(bound))
	copy(out, bound)
	return out
}

// Unregister destroys and removes the named reranker plugin.
func (r *RerankerRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byName[name]; ok {
		_ = p.Destroy()
		r.removeLocked(name)
	}
}

// List returns registered reranker plugin names, sorted.
func (r *RerankerRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close destroys every registered reranker plugin.
func (r *RerankerRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byName {
		_ = p.Destroy()
	}
	r.byName = make(map[string]RerankerPlugin)
	r.byStrat = make(map[string][]RerankerPlugin)
}
