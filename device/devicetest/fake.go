// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package devicetest provides an in-memory device.Driver for tests.
package devicetest

import (
	"fmt"

	"github.com/devblok/veng/device"
)

// PhysicalDevice scripts what the fake driver reports for one device.
type PhysicalDevice struct {
	Properties   device.PhysicalDeviceProperties
	Families     []device.QueueFamily
	Presentable  []bool
	Extensions   []string
	Capabilities device.SurfaceCapabilities
	Formats      []device.SurfaceFormat
	PresentModes []device.PresentMode

	// FailSurfaceQueries makes every surface query on this device fail.
	FailSurfaceQueries bool
	// FailExtensions makes the device extension query fail.
	FailExtensions bool
}

// Handle is the opaque handle the fake hands out. Kind tells which
// driver object it stands for.
type Handle struct {
	Kind string
	ID   int
}

func (h Handle) String() string {
	return fmt.Sprintf("%s#%d", h.Kind, h.ID)
}

// Driver is a scriptable device.Driver. Every create and destroy call is
// recorded in Calls, in order.
type Driver struct {
	InstanceExtensionNames []string
	InstanceLayerNames     []string
	Devices                []*PhysicalDevice

	// Fail maps a call name such as "CreateDevice" to the status code
	// the call returns.
	Fail map[string]int32

	Calls []string

	Instance      device.InstanceInfo
	DeviceInfo    device.DeviceInfo
	SwapchainInfo device.SwapchainInfo
	Debug         device.DebugFunc

	next int
}

// New returns a driver reporting the given devices.
func New(devices ...*PhysicalDevice) *Driver {
	return &Driver{Devices: devices}
}

// Suitable returns a device with one graphics+presentation family,
// the swapchain extension and a typical surface.
func Suitable(name string) *PhysicalDevice {
	return &PhysicalDevice{
		Properties: device.PhysicalDeviceProperties{
			Name: name,
			Type: device.DeviceTypeDiscreteGPU,
		},
		Families: []device.QueueFamily{
			{Flags: device.QueueGraphics | device.QueueCompute | device.QueueTransfer, QueueCount: 1},
		},
		Presentable: []bool{true},
		Extensions:  []string{device.SwapchainExtension},
		Capabilities: device.SurfaceCapabilities{
			MinImageCount:           2,
			MaxImageCount:           8,
			CurrentExtent:           device.Extent2D{Width: 800, Height: 600},
			MinImageExtent:          device.Extent2D{Width: 1, Height: 1},
			MaxImageExtent:          device.Extent2D{Width: 4096, Height: 4096},
			CurrentTransform:        device.SurfaceTransformIdentity,
			SupportedCompositeAlpha: device.CompositeAlphaOpaque,
		},
		Formats: []device.SurfaceFormat{
			{Format: device.FormatB8G8R8A8Srgb, ColorSpace: device.ColorSpaceSRGBNonlinear},
		},
		PresentModes: []device.PresentMode{device.PresentModeFIFO, device.PresentModeMailbox},
	}
}

func (d *Driver) handle(kind string) Handle {
	d.next++
	return Handle{Kind: kind, ID: d.next}
}

func (d *Driver) call(name string) error {
	d.Calls = append(d.Calls, name)
	if code, ok := d.Fail[name]; ok {
		return device.NewDriverError("vk."+name, code, "scripted failure")
	}
	return nil
}

func (d *Driver) physical(pd device.PhysicalDevice) *PhysicalDevice {
	p, ok := pd.(*PhysicalDevice)
	if !ok {
		panic(fmt.Sprintf("devicetest: foreign physical device %v", pd))
	}
	return p
}

// InstanceExtensions implements device.Driver
func (d *Driver) InstanceExtensions() ([]string, error) {
	if code, ok := d.Fail["EnumerateInstanceExtensionProperties"]; ok {
		return nil, device.NewDriverError("vk.EnumerateInstanceExtensionProperties", code, "scripted failure")
	}
	return d.InstanceExtensionNames, nil
}

// InstanceLayers implements device.Driver
func (d *Driver) InstanceLayers() ([]string, error) {
	if code, ok := d.Fail["EnumerateInstanceLayerProperties"]; ok {
		return nil, device.NewDriverError("vk.EnumerateInstanceLayerProperties", code, "scripted failure")
	}
	return d.InstanceLayerNames, nil
}

// DeviceExtensions implements device.Driver
func (d *Driver) DeviceExtensions(pd device.PhysicalDevice) ([]string, error) {
	p := d.physical(pd)
	if p.FailExtensions {
		return nil, device.NewDriverError("vk.EnumerateDeviceExtensionProperties", -3, "scripted failure")
	}
	return p.Extensions, nil
}

// QueueFamilies implements device.Driver
func (d *Driver) QueueFamilies(pd device.PhysicalDevice) []device.QueueFamily {
	return d.physical(pd).Families
}

// SurfaceSupport implements device.Driver
func (d *Driver) SurfaceSupport(pd device.PhysicalDevice, family uint32, s device.Surface) (bool, error) {
	p := d.physical(pd)
	if p.FailSurfaceQueries {
		return false, device.NewDriverError("vk.GetPhysicalDeviceSurfaceSupport", -3, "scripted failure")
	}
	if int(family) >= len(p.Presentable) {
		return false, nil
	}
	return p.Presentable[family], nil
}

// SurfaceCapabilities implements device.Driver
func (d *Driver) SurfaceCapabilities(pd device.PhysicalDevice, s device.Surface) (device.SurfaceCapabilities, error) {
	p := d.physical(pd)
	if p.FailSurfaceQueries {
		return device.SurfaceCapabilities{}, device.NewDriverError("vk.GetPhysicalDeviceSurfaceCapabilities", -3, "scripted failure")
	}
	return p.Capabilities, nil
}

// SurfaceFormats implements device.Driver
func (d *Driver) SurfaceFormats(pd device.PhysicalDevice, s device.Surface) ([]device.SurfaceFormat, error) {
	p := d.physical(pd)
	if p.FailSurfaceQueries {
		return nil, device.NewDriverError("vk.GetPhysicalDeviceSurfaceFormats", -3, "scripted failure")
	}
	return p.Formats, nil
}

// SurfacePresentModes implements device.Driver
func (d *Driver) SurfacePresentModes(pd device.PhysicalDevice, s device.Surface) ([]device.PresentMode, error) {
	p := d.physical(pd)
	if p.FailSurfaceQueries {
		return nil, device.NewDriverError("vk.GetPhysicalDeviceSurfacePresentModes", -3, "scripted failure")
	}
	return p.PresentModes, nil
}

// CreateInstance implements device.Driver
func (d *Driver) CreateInstance(info device.InstanceInfo) (device.Instance, error) {
	if err := d.call("CreateInstance"); err != nil {
		return nil, err
	}
	d.Instance = info
	return d.handle("instance"), nil
}

// DestroyInstance implements device.Driver
func (d *Driver) DestroyInstance(inst device.Instance) {
	d.Calls = append(d.Calls, "DestroyInstance")
}

// CreateDebugCallback implements device.Driver
func (d *Driver) CreateDebugCallback(inst device.Instance, fn device.DebugFunc) (device.DebugCallback, error) {
	if err := d.call("CreateDebugCallback"); err != nil {
		return nil, err
	}
	d.Debug = fn
	return d.handle("debug"), nil
}

// DestroyDebugCallback implements device.Driver
func (d *Driver) DestroyDebugCallback(inst device.Instance, cb device.DebugCallback) {
	d.Calls = append(d.Calls, "DestroyDebugCallback")
	d.Debug = nil
}

// CreateSurface is called by the fake window.
func (d *Driver) CreateSurface(inst device.Instance) (device.Surface, error) {
	if err := d.call("CreateSurface"); err != nil {
		return nil, err
	}
	return d.handle("surface"), nil
}

// DestroySurface implements device.Driver
func (d *Driver) DestroySurface(inst device.Instance, s device.Surface) {
	d.Calls = append(d.Calls, "DestroySurface")
}

// PhysicalDevices implements device.Driver
func (d *Driver) PhysicalDevices(inst device.Instance) ([]device.PhysicalDevice, error) {
	if code, ok := d.Fail["EnumeratePhysicalDevices"]; ok {
		return nil, device.NewDriverError("vk.EnumeratePhysicalDevices", code, "scripted failure")
	}
	devices := make([]device.PhysicalDevice, len(d.Devices))
	for i, p := range d.Devices {
		devices[i] = p
	}
	return devices, nil
}

// DeviceProperties implements device.Driver
func (d *Driver) DeviceProperties(pd device.PhysicalDevice) device.PhysicalDeviceProperties {
	return d.physical(pd).Properties
}

// CreateDevice implements device.Driver
func (d *Driver) CreateDevice(pd device.PhysicalDevice, info device.DeviceInfo) (device.Device, error) {
	if err := d.call("CreateDevice"); err != nil {
		return nil, err
	}
	d.DeviceInfo = info
	return d.handle("device"), nil
}

// DestroyDevice implements device.Driver
func (d *Driver) DestroyDevice(dev device.Device) {
	d.Calls = append(d.Calls, "DestroyDevice")
}

// Queue implements device.Driver
func (d *Driver) Queue(dev device.Device, family uint32) device.Queue {
	return Handle{Kind: "queue", ID: int(family)}
}

// CreateSwapchain implements device.Driver
func (d *Driver) CreateSwapchain(dev device.Device, info device.SwapchainInfo) (device.Swapchain, error) {
	if err := d.call("CreateSwapchain"); err != nil {
		return nil, err
	}
	d.SwapchainInfo = info
	return d.handle("swapchain"), nil
}

// DestroySwapchain implements device.Driver
func (d *Driver) DestroySwapchain(dev device.Device, sc device.Swapchain) {
	d.Calls = append(d.Calls, "DestroySwapchain")
}

// SwapchainImages implements device.Driver
func (d *Driver) SwapchainImages(dev device.Device, sc device.Swapchain) ([]device.Image, error) {
	if code, ok := d.Fail["GetSwapchainImages"]; ok {
		return nil, device.NewDriverError("vk.GetSwapchainImages", code, "scripted failure")
	}
	n := int(d.SwapchainInfo.MinImageCount)
	images := make([]device.Image, n)
	for i := range images {
		images[i] = d.handle("image")
	}
	return images, nil
}

// CreateImageView implements device.Driver
func (d *Driver) CreateImageView(dev device.Device, img device.Image, format device.Format) (device.ImageView, error) {
	if err := d.call("CreateImageView"); err != nil {
		return nil, err
	}
	return d.handle("view"), nil
}

// DestroyImageView implements device.Driver
func (d *Driver) DestroyImageView(dev device.Device, view device.ImageView) {
	d.Calls = append(d.Calls, "DestroyImageView")
}

// Window is a fake platform window backed by a Driver.
type Window struct {
	Driver     *Driver
	Extensions []string
	Width      int
	Height     int
}

// RequiredExtensions implements core.Window
func (w *Window) RequiredExtensions() []string {
	return w.Extensions
}

// DrawableSize implements core.Window
func (w *Window) DrawableSize() (int, int) {
	return w.Width, w.Height
}

// CreateSurface implements core.Window
func (w *Window) CreateSurface(inst device.Instance) (device.Surface, error) {
	return w.Driver.CreateSurface(inst)
}
