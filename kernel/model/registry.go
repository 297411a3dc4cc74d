package model

import (
	"fmt"
	"sort"
	"sync"
)

type Phase string

const (
	// PhaseHA is applied to every member before the pair is formed.
	PhaseHA Phase = "ha"
	// PhaseNetwork is applied to the active member only and replicated by sync.
	PhaseNetwork Phase = "network"
)

// ConfigRequest is one config/set call: an xpath and the element placed under it.
type ConfigRequest struct {
	XPath   string
	Element string
}

// DomainType produces the configuration requests for one area of the device
// configuration (interfaces, zones, HA group, ...).
type DomainType interface {
	Label() string
	Phase() Phase
	Sequence() int
	Enabled(inv *Inventory) bool
	Requests(dev *Device, inv *Inventory) ([]ConfigRequest, error)
}

// DomainFactory creates a new instance of a DomainType
type DomainFactory func() DomainType

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DomainFactory)
)

// RegisterDomainType registers a factory for a given configuration domain name.
// e.g. RegisterDomainType("zones", func() DomainType { return &TemplateDomain{...} })
func RegisterDomainType(name string, factory DomainFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("RegisterDomainType called twice for " + name)
	}
	registry[name] = factory
}

// GetDomainType creates a new instance of the domain type by name.
func GetDomainType(name string) (DomainType, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("configuration domain '%s' not found in registry", name)
	}
	return factory(), nil
}

// DomainTypesFor returns the domains of a phase in application order.
func DomainTypesFor(phase Phase) []DomainType {
	registryMu.RLock()
	defer registryMu.RUnlock()
	var out []DomainType
	for _, factory := range registry {
		if d := factory(); d.Phase() == phase {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Sequence() < out[j].Sequence()
	})
	return out
}

// DomainNames lists every registered domain, sorted.
func DomainNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
