// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	qt "github.com/frankban/quicktest"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/devblok/veng/core"
	"github.com/devblok/veng/device"
	"github.com/devblok/veng/device/devicetest"
)

const surfaceExtension = "VK_KHR_surface"

type fixture struct {
	driver *devicetest.Driver
	window *devicetest.Window
	cfg    core.Configuration
	logger *log.Logger
	hook   *test.Hook
}

func newFixture(devices ...*devicetest.PhysicalDevice) *fixture {
	d := devicetest.New(devices...)
	d.InstanceExtensionNames = []string{
		surfaceExtension,
		device.DebugReportExtension,
		device.PortabilityEnumerationExtension,
	}
	d.InstanceLayerNames = []string{device.ValidationLayer}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	return &fixture{
		driver: d,
		window: &devicetest.Window{Driver: d, Extensions: []string{surfaceExtension}, Width: 1280, Height: 720},
		cfg:    core.DefaultConfiguration(),
		logger: logger,
		hook:   hook,
	}
}

func (f *fixture) open() (*core.Context, error) {
	return core.Open(f.driver, f.window, f.cfg, f.logger)
}

func (f *fixture) messages(level log.Level) []string {
	var messages []string
	for _, e := range f.hook.AllEntries() {
		if e.Level == level {
			messages = append(messages, e.Message)
		}
	}
	return messages
}

func TestOpen(t *testing.T) {
	c := qt.New(t)
	f := newFixture(devicetest.Suitable("gpu"))

	ctx, err := f.open()
	c.Assert(err, qt.IsNil)
	defer ctx.Destroy()

	c.Assert(ctx.Stage(), qt.Equals, core.StageImageViewsReady)
	c.Assert(ctx.DiagnosticsEnabled(), qt.IsTrue)
	c.Assert(ctx.Candidate().Properties.Name, qt.Equals, "gpu")
	c.Assert(ctx.ImageViews(), qt.HasLen, 3)
	c.Assert(f.driver.Calls, qt.DeepEquals, []string{
		"CreateInstance",
		"CreateDebugCallback",
		"CreateSurface",
		"CreateDevice",
		"CreateSwapchain",
		"CreateImageView",
		"CreateImageView",
		"CreateImageView",
	})

	c.Assert(f.driver.Instance, qt.DeepEquals, device.InstanceInfo{
		ApplicationName:      "Graphics programming in Vulkan",
		ApplicationVersion:   device.Version{Major: 1},
		EngineName:           "VEng",
		EngineVersion:        device.Version{Major: 1},
		APIVersion:           core.APIVersion,
		Extensions:           []string{surfaceExtension, device.PortabilityEnumerationExtension, device.DebugReportExtension},
		Layers:               []string{device.ValidationLayer},
		EnumeratePortability: true,
	})

	c.Assert(f.driver.DeviceInfo, qt.DeepEquals, device.DeviceInfo{
		QueueFamilies: []uint32{0},
		Extensions:    []string{device.SwapchainExtension},
	})

	graphics, present := ctx.Queues()
	c.Assert(graphics, qt.Not(qt.IsNil))
	c.Assert(graphics, qt.Equals, present)

	sc := f.driver.SwapchainInfo
	c.Assert(sc.Concurrent(), qt.IsFalse)
	c.Assert(sc.MinImageCount, qt.Equals, uint32(3))
	c.Assert(sc.PresentMode, qt.Equals, device.PresentModeMailbox)
	c.Assert(sc.Extent, qt.Equals, device.Extent2D{Width: 800, Height: 600})
	c.Assert(sc.Surface, qt.Equals, ctx.Surface())
	c.Assert(ctx.SwapchainConfig().SurfaceFormat.Format, qt.Equals, device.FormatB8G8R8A8Srgb)

	c.Assert(f.messages(log.InfoLevel), qt.Contains, "Graphics context ready")
}

func TestDestroyReverseOrder(t *testing.T) {
	c := qt.New(t)
	f := newFixture(devicetest.Suitable("gpu"))

	ctx, err := f.open()
	c.Assert(err, qt.IsNil)
	f.driver.Calls = nil

	ctx.Destroy()
	c.Assert(f.driver.Calls, qt.DeepEquals, []string{
		"DestroyImageView",
		"DestroyImageView",
		"DestroyImageView",
		"DestroySwapchain",
		"DestroyDevice",
		"DestroySurface",
		"DestroyDebugCallback",
		"DestroyInstance",
	})
	c.Assert(ctx.Stage(), qt.Equals, core.StageUninitialized)
	c.Assert(ctx.Instance(), qt.IsNil)
	c.Assert(ctx.Device(), qt.IsNil)
	c.Assert(ctx.Swapchain(), qt.IsNil)
	c.Assert(ctx.ImageViews(), qt.HasLen, 0)

	ctx.Destroy()
	c.Assert(f.driver.Calls, qt.HasLen, 8)
}

func TestInitializeTwice(t *testing.T) {
	c := qt.New(t)
	f := newFixture(devicetest.Suitable("gpu"))

	ctx, err := f.open()
	c.Assert(err, qt.IsNil)
	defer ctx.Destroy()

	c.Assert(errors.Is(ctx.Initialize(), core.ErrAlreadyInitialized), qt.IsTrue)
}

func TestStageFailureCleansUp(t *testing.T) {
	created := []string{
		"CreateInstance",
		"CreateDebugCallback",
		"CreateSurface",
		"CreateDevice",
		"CreateSwapchain",
	}
	destroyed := []string{
		"DestroyInstance",
		"DestroyDebugCallback",
		"DestroySurface",
		"DestroyDevice",
		"DestroySwapchain",
	}
	// calls expects the first n objects to be created, the call that
	// fails, then the n objects destroyed newest first.
	calls := func(n int, failing string) []string {
		var out []string
		out = append(out, created[:n]...)
		if failing != "" {
			out = append(out, failing)
		}
		for i := n - 1; i >= 0; i-- {
			out = append(out, destroyed[i])
		}
		return out
	}

	tests := []struct {
		fail    string
		message string
		calls   []string
	}{{
		fail:    "CreateInstance",
		message: `instance: vk.CreateInstance\(\): scripted failure \(status -3\)`,
		calls:   calls(0, "CreateInstance"),
	}, {
		fail:    "CreateDebugCallback",
		message: `diagnostics: vk.CreateDebugCallback\(\): scripted failure \(status -3\)`,
		calls:   calls(1, "CreateDebugCallback"),
	}, {
		fail:    "CreateSurface",
		message: `surface: vk.CreateSurface\(\): scripted failure \(status -3\)`,
		calls:   calls(2, "CreateSurface"),
	}, {
		fail:    "EnumeratePhysicalDevices",
		message: `device selection: enumerating physical devices: vk.EnumeratePhysicalDevices\(\): scripted failure \(status -3\)`,
		calls:   calls(3, ""),
	}, {
		fail:    "CreateDevice",
		message: `logical device: vk.CreateDevice\(\): scripted failure \(status -3\)`,
		calls:   calls(3, "CreateDevice"),
	}, {
		fail:    "CreateSwapchain",
		message: `swapchain: vk.CreateSwapchain\(\): scripted failure \(status -3\)`,
		calls:   calls(4, "CreateSwapchain"),
	}, {
		fail:    "GetSwapchainImages",
		message: `swapchain: vk.GetSwapchainImages\(\): scripted failure \(status -3\)`,
		calls:   calls(5, ""),
	}, {
		fail:    "CreateImageView",
		message: `image views: image 0: vk.CreateImageView\(\): scripted failure \(status -3\)`,
		calls:   calls(5, "CreateImageView"),
	}}

	for _, test := range tests {
		t.Run(test.fail, func(t *testing.T) {
			c := qt.New(t)
			f := newFixture(devicetest.Suitable("gpu"))
			f.driver.Fail = map[string]int32{test.fail: -3}

			ctx, err := f.open()
			c.Assert(ctx, qt.IsNil)
			c.Assert(err, qt.ErrorMatches, test.message)
			c.Assert(errors.Is(err, device.ErrDriverCall), qt.IsTrue)

			var de *device.DriverError
			c.Assert(errors.As(err, &de), qt.IsTrue)
			c.Assert(de.Code, qt.Equals, int32(-3))

			c.Assert(f.driver.Calls, qt.DeepEquals, test.calls)
			c.Assert(f.messages(log.ErrorLevel), qt.DeepEquals, []string{"Initialization failed"})
		})
	}
}

func TestLaterImageViewFailure(t *testing.T) {
	c := qt.New(t)
	f := newFixture(devicetest.Suitable("gpu"))

	// Let two views succeed before failing the third.
	views := 0
	failing := &failAfter{Driver: f.driver, call: "CreateImageView", after: 2, count: &views}
	ctx := core.New(failing, f.window, f.cfg, f.logger)
	c.Assert(ctx.Stage(), qt.Equals, core.StageUninitialized)

	err := ctx.Initialize()
	c.Assert(err, qt.ErrorMatches, `image views: image 2: .*`)
	c.Assert(f.driver.Calls[len(f.driver.Calls)-7:], qt.DeepEquals, []string{
		"DestroyImageView",
		"DestroyImageView",
		"DestroySwapchain",
		"DestroyDevice",
		"DestroySurface",
		"DestroyDebugCallback",
		"DestroyInstance",
	})
	c.Assert(ctx.Stage(), qt.Equals, core.StageUninitialized)
	c.Assert(ctx.ImageViews(), qt.HasLen, 0)
}

// failAfter lets call succeed after times, then scripts it to fail.
type failAfter struct {
	*devicetest.Driver
	call  string
	after int
	count *int
}

func (f *failAfter) CreateImageView(dev device.Device, img device.Image, format device.Format) (device.ImageView, error) {
	if *f.count == f.after {
		f.Driver.Fail = map[string]int32{f.call: -1}
	}
	*f.count++
	return f.Driver.CreateImageView(dev, img, format)
}

func TestNoSuitableDevice(t *testing.T) {
	c := qt.New(t)
	noPresent := devicetest.Suitable("headless")
	noPresent.Presentable = []bool{false}

	for _, f := range []*fixture{newFixture(), newFixture(noPresent)} {
		ctx, err := f.open()
		c.Assert(ctx, qt.IsNil)
		c.Assert(errors.Is(err, device.ErrNoSuitableDevice), qt.IsTrue)
		c.Assert(err, qt.ErrorMatches, `device selection: .*: no suitable device`)
		c.Assert(f.driver.Calls, qt.DeepEquals, []string{
			"CreateInstance",
			"CreateDebugCallback",
			"CreateSurface",
			"DestroySurface",
			"DestroyDebugCallback",
			"DestroyInstance",
		})
	}
}

func TestSecondDeviceSelected(t *testing.T) {
	c := qt.New(t)
	d0 := devicetest.Suitable("d0")
	d0.Presentable = []bool{false}
	f := newFixture(d0, devicetest.Suitable("d1"))

	ctx, err := f.open()
	c.Assert(err, qt.IsNil)
	defer ctx.Destroy()
	c.Assert(ctx.Candidate().Device, qt.Equals, device.PhysicalDevice(f.driver.Devices[1]))
}

func TestMissingWindowExtension(t *testing.T) {
	c := qt.New(t)
	f := newFixture(devicetest.Suitable("gpu"))
	f.window.Extensions = []string{surfaceExtension, "VK_KHR_xlib_surface"}

	ctx, err := f.open()
	c.Assert(ctx, qt.IsNil)
	c.Assert(err, qt.ErrorMatches, `instance: missing instance extensions: \[VK_KHR_xlib_surface\]`)
	c.Assert(errors.Is(err, device.ErrCapabilityMissing), qt.IsTrue)
	c.Assert(f.driver.Calls, qt.HasLen, 0)
}

func TestMissingRequiredLayer(t *testing.T) {
	c := qt.New(t)
	f := newFixture(devicetest.Suitable("gpu"))
	f.cfg.Instance.Layers = []string{"VK_LAYER_MESA_overlay"}

	_, err := f.open()
	c.Assert(errors.Is(err, device.ErrCapabilityMissing), qt.IsTrue)
	c.Assert(f.driver.Calls, qt.HasLen, 0)
}

func TestDiagnosticsDisabled(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture)
		warning string
	}{{
		name: "layer missing",
		prepare: func(f *fixture) {
			f.driver.InstanceLayerNames = nil
		},
		warning: "Validation layer not supported, diagnostics disabled",
	}, {
		name: "debug report missing",
		prepare: func(f *fixture) {
			f.driver.InstanceExtensionNames = []string{surfaceExtension}
		},
		warning: "Debug report not supported, diagnostics disabled",
	}, {
		name: "validation off",
		prepare: func(f *fixture) {
			f.cfg.Instance.Validation = false
		},
	}}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			f := newFixture(devicetest.Suitable("gpu"))
			test.prepare(f)

			ctx, err := f.open()
			c.Assert(err, qt.IsNil)
			defer ctx.Destroy()

			c.Assert(ctx.DiagnosticsEnabled(), qt.IsFalse)
			c.Assert(ctx.Stage(), qt.Equals, core.StageImageViewsReady)
			c.Assert(f.driver.Calls, qt.Not(qt.Contains), "CreateDebugCallback")
			c.Assert(f.driver.Instance.Layers, qt.HasLen, 0)
			c.Assert(f.driver.Instance.Extensions, qt.Not(qt.Contains), device.DebugReportExtension)
			if test.warning != "" {
				c.Assert(f.messages(log.WarnLevel), qt.DeepEquals, []string{test.warning})
			}
		})
	}
}

func TestDiagnosticsForwarded(t *testing.T) {
	c := qt.New(t)
	f := newFixture(devicetest.Suitable("gpu"))

	ctx, err := f.open()
	c.Assert(err, qt.IsNil)

	abort := f.driver.Debug(device.Message{
		Severity: device.SeverityError,
		Layer:    "Validation",
		Code:     7,
		Text:     "vkCreateSwapchainKHR: bad extent",
	})
	c.Assert(abort, qt.IsFalse)

	entry := f.hook.LastEntry()
	c.Assert(entry.Level, qt.Equals, log.ErrorLevel)
	c.Assert(entry.Message, qt.Equals, "vkCreateSwapchainKHR: bad extent")
	c.Assert(entry.Data["context"], qt.Equals, ctx.ID().String())

	ctx.Destroy()
	c.Assert(f.driver.Debug, qt.IsNil)
}

func TestPortability(t *testing.T) {
	c := qt.New(t)

	pd := devicetest.Suitable("moltenvk")
	pd.Extensions = append(pd.Extensions, device.PortabilitySubsetExtension)
	f := newFixture(pd)

	ctx, err := f.open()
	c.Assert(err, qt.IsNil)
	ctx.Destroy()
	c.Assert(f.driver.Instance.EnumeratePortability, qt.IsTrue)
	c.Assert(f.driver.DeviceInfo.Extensions, qt.DeepEquals, []string{device.SwapchainExtension, device.PortabilitySubsetExtension})

	f = newFixture(devicetest.Suitable("gpu"))
	f.cfg.Instance.Portability = false
	ctx, err = f.open()
	c.Assert(err, qt.IsNil)
	ctx.Destroy()
	c.Assert(f.driver.Instance.EnumeratePortability, qt.IsFalse)
	c.Assert(f.driver.Instance.Extensions, qt.Not(qt.Contains), device.PortabilityEnumerationExtension)
}

func TestSeparatePresentationFamily(t *testing.T) {
	c := qt.New(t)
	pd := devicetest.Suitable("gpu")
	pd.Families = []device.QueueFamily{
		{Flags: device.QueueGraphics, QueueCount: 16},
		{Flags: device.QueueCompute, QueueCount: 2},
	}
	pd.Presentable = []bool{false, true}
	f := newFixture(pd)

	ctx, err := f.open()
	c.Assert(err, qt.IsNil)
	defer ctx.Destroy()

	c.Assert(f.driver.DeviceInfo.QueueFamilies, qt.DeepEquals, []uint32{0, 1})
	c.Assert(f.driver.SwapchainInfo.Concurrent(), qt.IsTrue)
	c.Assert(f.driver.SwapchainInfo.QueueFamilies, qt.DeepEquals, []uint32{0, 1})

	graphics, present := ctx.Queues()
	c.Assert(graphics, qt.Not(qt.Equals), present)
}

func TestDrawableSizeUsedForUndefinedExtent(t *testing.T) {
	c := qt.New(t)
	pd := devicetest.Suitable("wayland")
	pd.Capabilities.CurrentExtent = device.Extent2D{Width: device.UndefinedExtent, Height: device.UndefinedExtent}
	f := newFixture(pd)

	ctx, err := f.open()
	c.Assert(err, qt.IsNil)
	defer ctx.Destroy()

	c.Assert(ctx.SwapchainConfig().Extent, qt.Equals, device.Extent2D{Width: 1280, Height: 720})
}
