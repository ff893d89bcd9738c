package retailers

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the known retailer connectors keyed by retailer id.
type Registry struct {
	mtx        sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry builds an empty connector registry.
func NewRegistry() *Registry {
	return &Registry{connectors: make(map[string]Connector)}
}

// Register adds or replaces a connector. Empty ids are rejected.
func (r *Registry) Register(connector Connector) error {
	if connector.ID == "" {
		return fmt.Errorf("retailer id required")
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.connectors[connector.ID] = connector
	return nil
}

// Lookup returns the connector for the given retailer id.
func (r *Registry) Lookup(retailerID string) (Connector, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	connector, ok := r.connectors[retailerID]
	return connector, ok
}

// IDs returns the registered retailer ids in sorted order.
func (r *Registry) IDs() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	ids := make([]string, 0, len(r.connectors))
	for id := range r.connectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
