// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/veng/device"
	"github.com/devblok/veng/device/devicetest"
)

func noPresentation(name string) *devicetest.PhysicalDevice {
	pd := devicetest.Suitable(name)
	pd.Presentable = []bool{false}
	return pd
}

func TestPickSkipsUnsuitable(t *testing.T) {
	c := qt.New(t)
	logger, hook := test.NewNullLogger()

	d0, d1 := noPresentation("d0"), devicetest.Suitable("d1")
	s := device.NewSelector(devicetest.New(d0, d1), nil, device.RequiredDeviceExtensions, logger)

	picked, err := s.Pick(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(picked.Device, qt.Equals, device.PhysicalDevice(d1))
	c.Assert(picked.Properties.Name, qt.Equals, "d1")
	c.Assert(picked.Indices.IsValid(), qt.IsTrue)
	c.Assert(picked.Extensions.Has(device.SwapchainExtension), qt.IsTrue)

	c.Assert(hook.Entries, qt.HasLen, 2)
	c.Assert(hook.Entries[0].Message, qt.Equals, "Physical device rejected")
	c.Assert(hook.Entries[0].Data["device"], qt.Equals, "d0")
	c.Assert(hook.Entries[1].Message, qt.Equals, "Physical device selected")
}

func TestPickFirstSuitableWins(t *testing.T) {
	c := qt.New(t)
	logger, _ := test.NewNullLogger()

	first, second := devicetest.Suitable("first"), devicetest.Suitable("second")
	s := device.NewSelector(devicetest.New(first, second), nil, device.RequiredDeviceExtensions, logger)

	for i := 0; i < 5; i++ {
		picked, err := s.Pick(nil)
		c.Assert(err, qt.IsNil)
		c.Assert(picked.Properties.Name, qt.Equals, "first")
	}
}

func TestPickSkipsFailingDevice(t *testing.T) {
	c := qt.New(t)
	logger, hook := test.NewNullLogger()

	broken, gpu := devicetest.Suitable("broken"), devicetest.Suitable("gpu")
	broken.FailExtensions = true
	s := device.NewSelector(devicetest.New(broken, gpu), nil, device.RequiredDeviceExtensions, logger)

	picked, err := s.Pick(nil)
	c.Assert(err, qt.IsNil)
	c.Assert(picked.Properties.Name, qt.Equals, "gpu")

	c.Assert(hook.Entries, qt.HasLen, 2)
	c.Assert(hook.Entries[0].Message, qt.Equals, "Physical device rejected")
	c.Assert(hook.Entries[0].Data["device"], qt.Equals, "broken")
	rejected, ok := hook.Entries[0].Data[logrus.ErrorKey].(error)
	c.Assert(ok, qt.IsTrue)
	c.Assert(errors.Is(rejected, device.ErrDriverCall), qt.IsTrue)
	c.Assert(errors.Is(rejected, device.ErrUnsuitable), qt.IsFalse)
}

func TestPickNoDevices(t *testing.T) {
	c := qt.New(t)
	s := device.NewSelector(devicetest.New(), nil, device.RequiredDeviceExtensions, nil)

	_, err := s.Pick(nil)
	c.Assert(errors.Is(err, device.ErrNoSuitableDevice), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `driver reports no physical devices: no suitable device`)
}

func TestPickNoneSuitable(t *testing.T) {
	c := qt.New(t)
	logger, hook := test.NewNullLogger()

	s := device.NewSelector(devicetest.New(noPresentation("a"), noPresentation("b")), nil, device.RequiredDeviceExtensions, logger)

	_, err := s.Pick(nil)
	c.Assert(errors.Is(err, device.ErrNoSuitableDevice), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `none of 2 physical devices is suitable: no suitable device`)
	c.Assert(hook.Entries, qt.HasLen, 2)
}

func TestPickEnumerationFailure(t *testing.T) {
	c := qt.New(t)
	d := devicetest.New(devicetest.Suitable("gpu"))
	d.Fail = map[string]int32{"EnumeratePhysicalDevices": -2}

	_, err := device.NewSelector(d, nil, nil, nil).Pick(nil)
	c.Assert(errors.Is(err, device.ErrDriverCall), qt.IsTrue)
	c.Assert(errors.Is(err, device.ErrNoSuitableDevice), qt.IsFalse)
}

func TestEvaluate(t *testing.T) {
	missingExtension := devicetest.Suitable("no swapchain")
	missingExtension.Extensions = nil

	noFormats := devicetest.Suitable("no formats")
	noFormats.Formats = nil

	noModes := devicetest.Suitable("no modes")
	noModes.PresentModes = nil

	noGraphics := devicetest.Suitable("compute only")
	noGraphics.Families = []device.QueueFamily{{Flags: device.QueueCompute}}

	tests := []struct {
		name    string
		pd      *devicetest.PhysicalDevice
		missing bool
		message string
	}{
		{"missing extension", missingExtension, true, `missing device extensions: \[VK_KHR_swapchain\]`},
		{"no formats", noFormats, false, `surface reports 0 formats and 2 present modes`},
		{"no present modes", noModes, false, `surface reports 1 formats and 0 present modes`},
		{"no graphics", noGraphics, false, `incomplete queue families \{graphics: none, presentation: 0\}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			s := device.NewSelector(devicetest.New(test.pd), nil, device.RequiredDeviceExtensions, nil)

			_, err := s.Evaluate(test.pd)
			c.Assert(err, qt.ErrorMatches, test.message)
			c.Assert(errors.Is(err, device.ErrUnsuitable), qt.IsTrue)
			c.Assert(errors.Is(err, device.ErrCapabilityMissing), qt.Equals, test.missing)
			c.Assert(s.IsSuitable(test.pd), qt.IsFalse)
		})
	}
}

func TestIsSuitable(t *testing.T) {
	c := qt.New(t)
	pd := devicetest.Suitable("gpu")
	s := device.NewSelector(devicetest.New(pd), nil, device.RequiredDeviceExtensions, nil)
	c.Assert(s.IsSuitable(pd), qt.IsTrue)

	pd.FailSurfaceQueries = true
	c.Assert(s.IsSuitable(pd), qt.IsFalse)
}

func TestDescribe(t *testing.T) {
	c := qt.New(t)
	gpu := devicetest.Suitable("gpu")
	gpu.Properties.VendorID = 0x10de
	cpu := noPresentation("llvmpipe")
	cpu.Properties.Type = device.DeviceTypeCPU

	infos, err := device.Describe(devicetest.New(gpu, cpu), nil)
	c.Assert(err, qt.IsNil)
	c.Assert(infos, qt.HasLen, 2)
	c.Assert(infos[0].Name, qt.Equals, "gpu")
	c.Assert(infos[0].VendorID, qt.Equals, 0x10de)
	c.Assert(infos[0].Extensions, qt.DeepEquals, []string{device.SwapchainExtension})
	c.Assert(infos[0].QueueFamilies, qt.DeepEquals, gpu.Families)
	c.Assert(infos[1].Type, qt.Equals, device.DeviceTypeCPU)
	c.Assert(infos[1].Invalid, qt.IsFalse)
}

func TestDescribeMarksUnreadableDevice(t *testing.T) {
	c := qt.New(t)
	broken := devicetest.Suitable("broken")
	broken.FailExtensions = true

	infos, err := device.Describe(devicetest.New(broken, devicetest.Suitable("gpu")), nil)
	c.Assert(err, qt.IsNil)
	c.Assert(infos, qt.HasLen, 2)
	c.Assert(infos[0].Name, qt.Equals, "broken")
	c.Assert(infos[0].Invalid, qt.IsTrue)
	c.Assert(infos[0].Extensions, qt.IsNil)
	c.Assert(infos[0].QueueFamilies, qt.DeepEquals, broken.Families)
	c.Assert(infos[1].Invalid, qt.IsFalse)
}
