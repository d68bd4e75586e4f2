// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// Kind selects which instance-level enumeration a Prober reads.
type Kind int

// Instance-level capability kinds.
const (
	InstanceExtensions Kind = iota
	InstanceLayers
)

func (k Kind) String() string {
	switch k {
	case InstanceExtensions:
		return "instance extensions"
	case InstanceLayers:
		return "instance layers"
	}
	return "unknown"
}

// Set is a set of extension or layer names.
type Set map[string]struct{}

// NewSet builds a set from names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Names returns the set contents in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// AllSupported reports whether every requested name is available.
// An empty request is always satisfied.
func AllSupported(requested []string, available Set) bool {
	for _, name := range requested {
		if !available.Has(name) {
			return false
		}
	}
	return true
}

// Missing returns the requested names that are not available,
// in request order.
func Missing(requested []string, available Set) []string {
	var missing []string
	for _, name := range requested {
		if !available.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Prober queries which extensions and layers the driver supports.
type Prober struct {
	src CapabilitySource
}

// NewProber creates a prober over src.
func NewProber(src CapabilitySource) *Prober {
	return &Prober{src: src}
}

// Supported returns the names the driver currently reports for kind.
func (p *Prober) Supported(kind Kind) (Set, error) {
	var (
		names []string
		err   error
	)
	switch kind {
	case InstanceExtensions:
		names, err = p.src.InstanceExtensions()
	case InstanceLayers:
		names, err = p.src.InstanceLayers()
	default:
		return nil, errors.Newf("unknown capability kind %d", int(kind))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "probing %s", kind)
	}
	return NewSet(names...), nil
}

// DeviceSupported returns the extensions pd reports.
func (p *Prober) DeviceSupported(pd PhysicalDevice) (Set, error) {
	names, err := p.src.DeviceExtensions(pd)
	if err != nil {
		return nil, errors.Wrap(err, "probing device extensions")
	}
	return NewSet(names...), nil
}

// Require fails with ErrCapabilityMissing unless every name is supported.
func (p *Prober) Require(kind Kind, names []string) error {
	available, err := p.Supported(kind)
	if err != nil {
		return err
	}
	if missing := Missing(names, available); len(missing) > 0 {
		return missingError(kind.String(), missing)
	}
	return nil
}
