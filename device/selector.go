// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
)

// Candidate is a physical device together with the facts that made it
// suitable. The device handle is borrowed from the driver.
type Candidate struct {
	Device     PhysicalDevice
	Properties PhysicalDeviceProperties
	Indices    QueueFamilyIndices
	Extensions Set
	Swapchain  SwapchainProperties
}

// Selector picks the physical device to render with.
type Selector struct {
	driver     Driver
	surface    Surface
	required   []string
	prober     *Prober
	resolver   *QueueFamilyResolver
	negotiator *SwapchainNegotiator
	log        log.FieldLogger
}

// NewSelector creates a selector for devices able to present to s and
// supporting every extension in required. A nil logger uses the
// standard logger.
func NewSelector(d Driver, s Surface, required []string, logger log.FieldLogger) *Selector {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Selector{
		driver:     d,
		surface:    s,
		required:   required,
		prober:     NewProber(d),
		resolver:   NewQueueFamilyResolver(d),
		negotiator: NewSwapchainNegotiator(d),
		log:        logger,
	}
}

// Enumerate lists every physical device inst reports, in driver order.
func (s *Selector) Enumerate(inst Instance) ([]PhysicalDevice, error) {
	devices, err := s.driver.PhysicalDevices(inst)
	if err != nil {
		return nil, errors.Wrap(err, "enumerating physical devices")
	}
	return devices, nil
}

// Evaluate gathers the facts about pd. The returned error is marked with
// ErrUnsuitable when pd was inspected successfully but cannot be used.
func (s *Selector) Evaluate(pd PhysicalDevice) (Candidate, error) {
	c := Candidate{
		Device:     pd,
		Properties: s.driver.DeviceProperties(pd),
	}

	indices, err := s.resolver.Resolve(pd, s.surface)
	if err != nil {
		return c, err
	}
	c.Indices = indices
	if !indices.IsValid() {
		return c, unsuitable("incomplete queue families %s", indices)
	}

	if c.Extensions, err = s.prober.DeviceSupported(pd); err != nil {
		return c, err
	}
	if missing := Missing(s.required, c.Extensions); len(missing) > 0 {
		return c, errors.Mark(missingError("device extensions", missing), ErrUnsuitable)
	}

	if c.Swapchain, err = s.negotiator.Query(pd, s.surface); err != nil {
		return c, err
	}
	if !c.Swapchain.IsValid() {
		return c, unsuitable("surface reports %d formats and %d present modes",
			len(c.Swapchain.Formats), len(c.Swapchain.PresentModes))
	}

	return c, nil
}

// IsSuitable reports whether pd has valid queue families, every required
// extension and at least one surface format and present mode.
func (s *Selector) IsSuitable(pd PhysicalDevice) bool {
	_, err := s.Evaluate(pd)
	return err == nil
}

// Pick returns the first suitable device in enumeration order.
func (s *Selector) Pick(inst Instance) (Candidate, error) {
	devices, err := s.Enumerate(inst)
	if err != nil {
		return Candidate{}, err
	}
	if len(devices) == 0 {
		return Candidate{}, errors.Wrap(ErrNoSuitableDevice, "driver reports no physical devices")
	}

	for i, pd := range devices {
		c, err := s.Evaluate(pd)
		if err == nil {
			s.log.WithFields(log.Fields{
				"index":  i,
				"device": c.Properties.Name,
				"type":   c.Properties.Type,
				"queues": c.Indices,
			}).Info("Physical device selected")
			return c, nil
		}
		s.log.WithFields(log.Fields{
			"index":  i,
			"device": c.Properties.Name,
		}).WithError(err).Info("Physical device rejected")
	}

	return Candidate{}, errors.Wrapf(ErrNoSuitableDevice, "none of %d physical devices is suitable", len(devices))
}
