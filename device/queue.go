// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// QueueFamilyIndices are the families the logical device draws its
// graphics and presentation queues from. Nil means not found.
type QueueFamilyIndices struct {
	Graphics     *uint32
	Presentation *uint32
}

// IsValid reports whether both families were found.
func (q QueueFamilyIndices) IsValid() bool {
	return q.Graphics != nil && q.Presentation != nil
}

// Shared reports whether one family serves both purposes.
// Only meaningful on valid indices.
func (q QueueFamilyIndices) Shared() bool {
	return q.IsValid() && *q.Graphics == *q.Presentation
}

// Unique returns the distinct family indices, graphics first.
func (q QueueFamilyIndices) Unique() []uint32 {
	var families []uint32
	if q.Graphics != nil {
		families = append(families, *q.Graphics)
	}
	if q.Presentation != nil && (q.Graphics == nil || *q.Graphics != *q.Presentation) {
		families = append(families, *q.Presentation)
	}
	return families
}

func (q QueueFamilyIndices) String() string {
	f := func(i *uint32) string {
		if i == nil {
			return "none"
		}
		return fmt.Sprint(*i)
	}
	return fmt.Sprintf("{graphics: %s, presentation: %s}", f(q.Graphics), f(q.Presentation))
}

// GraphicsWork is the set of queue bits accepted for the graphics family.
const GraphicsWork = QueueGraphics | QueueTransfer

// QueueFamilyResolver finds the queue families a device offers for
// graphics work and for presenting to a surface.
type QueueFamilyResolver struct {
	q QueueQuerier
}

// NewQueueFamilyResolver creates a resolver over q.
func NewQueueFamilyResolver(q QueueQuerier) *QueueFamilyResolver {
	return &QueueFamilyResolver{q: q}
}

// Resolve scans the families of pd in index order. The graphics family is
// the first one that can do graphics or transfer work, the presentation
// family the first one that can present to s. The scans are independent
// and the result may be incomplete; check IsValid.
func (r *QueueFamilyResolver) Resolve(pd PhysicalDevice, s Surface) (QueueFamilyIndices, error) {
	var indices QueueFamilyIndices
	families := r.q.QueueFamilies(pd)

	for i, family := range families {
		if family.Flags.Has(GraphicsWork) {
			idx := uint32(i)
			indices.Graphics = &idx
			break
		}
	}

	for i := range families {
		supported, err := r.q.SurfaceSupport(pd, uint32(i), s)
		if err != nil {
			return indices, errors.Wrapf(err, "queue family %d", i)
		}
		if supported {
			idx := uint32(i)
			indices.Presentation = &idx
			break
		}
	}

	return indices, nil
}
