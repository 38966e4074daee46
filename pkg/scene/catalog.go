package scene

import (
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/scenestack/pkg/domain"
)

// Factory constructs a fresh node. The orchestrator never reuses a node instance.
type Factory func() Node

type catalogEntry struct {
	factory Factory
	dialog  bool
}

// Catalog maps scene types to their factories.
type Catalog struct {
	mu      sync.RWMutex
	entries map[domain.SceneType]catalogEntry
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[domain.SceneType]catalogEntry)}
}

// Register adds a full scene type.
func (c *Catalog) Register(t domain.SceneType, f Factory) error {
	return c.add(t, f, false)
}

// RegisterDialog adds a dialog scene type.
func (c *Catalog) RegisterDialog(t domain.SceneType, f Factory) error {
	return c.add(t, f, true)
}

func (c *Catalog) add(t domain.SceneType, f Factory, dialog bool) error {
	if f == nil {
		return fmt.Errorf("register %s: nil factory", t)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[t]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateScene, t)
	}
	c.entries[t] = catalogEntry{factory: f, dialog: dialog}
	return nil
}

// New constructs a node of type t and reports whether it is a dialog.
func (c *Catalog) New(t domain.SceneType) (Node, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[t]
	c.mu.RUnlock()

	if !ok {
		return nil, false, fmt.Errorf("%w: %s", domain.ErrUnknownScene, t)
	}
	node := e.factory()
	if node == nil {
		return nil, false, fmt.Errorf("factory for %s returned nil", t)
	}
	return node, e.dialog, nil
}

// Has reports whether t is registered.
func (c *Catalog) Has(t domain.SceneType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[t]
	return ok
}

// IsDialog reports whether t is a registered dialog type.
func (c *Catalog) IsDialog(t domain.SceneType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[t].dialog
}

// Types lists registered types, sorted.
func (c *Catalog) Types() []domain.SceneType {
	c.mu.RLock()
	defer c.mu.RUnlock()

	types := make([]domain.SceneType, 0, len(c.entries))
	for t := range c.entries {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
