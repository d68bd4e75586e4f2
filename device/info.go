// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

// PhysicalDeviceInfo describes available physical properties of a rendering device
type PhysicalDeviceInfo struct {
	PhysicalDeviceProperties

	Invalid       bool
	Extensions    []string
	QueueFamilies []QueueFamily
}

// Describe returns a PhysicalDeviceInfo for every device inst reports.
// A device whose extensions cannot be read is marked Invalid.
func Describe(d Driver, inst Instance) ([]PhysicalDeviceInfo, error) {
	devices, err := d.PhysicalDevices(inst)
	if err != nil {
		return nil, err
	}

	prober := NewProber(d)
	pdi := make([]PhysicalDeviceInfo, len(devices))
	for i, pd := range devices {
		pdi[i].PhysicalDeviceProperties = d.DeviceProperties(pd)
		pdi[i].QueueFamilies = d.QueueFamilies(pd)

		ext, err := prober.DeviceSupported(pd)
		if err != nil {
			pdi[i].Invalid = true
			continue
		}
		pdi[i].Extensions = ext.Names()
	}
	return pdi, nil
}
