// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package device negotiates a rendering device and a presentable surface
// configuration against a capability-reporting graphics driver.
//
// The driver itself is described by the Driver interface so that the
// negotiation rules can run against any backend. The vkd subpackage
// implements it on top of Vulkan.
package device

// Opaque driver handles. A nil value is the null sentinel for every kind.
type (
	Instance       interface{}
	DebugCallback  interface{}
	Surface        interface{}
	PhysicalDevice interface{}
	Device         interface{}
	Queue          interface{}
	Swapchain      interface{}
	Image          interface{}
	ImageView      interface{}
)

// PhysicalDeviceProperties describes general properties of a rendering device
type PhysicalDeviceProperties struct {
	ID            int
	VendorID      int
	DriverVersion int
	APIVersion    int
	Type          DeviceType
	Name          string
}

// QueueFamily describes one queue family of a physical device
type QueueFamily struct {
	Flags      QueueFlags
	QueueCount uint32
}

// InstanceInfo is everything needed to open a connection to the driver.
type InstanceInfo struct {
	ApplicationName    string
	ApplicationVersion Version
	EngineName         string
	EngineVersion      Version
	APIVersion         Version

	Extensions []string
	Layers     []string

	// EnumeratePortability lists portability implementations
	// alongside conformant ones.
	EnumeratePortability bool
}

// DeviceInfo is everything needed to open a logical device.
type DeviceInfo struct {
	// QueueFamilies must not contain duplicates. One queue
	// is created in each family.
	QueueFamilies []uint32
	Extensions    []string
}

// SwapchainInfo is everything needed to create a swap chain.
type SwapchainInfo struct {
	Surface        Surface
	MinImageCount  uint32
	Format         SurfaceFormat
	Extent         Extent2D
	PresentMode    PresentMode
	PreTransform   SurfaceTransform
	CompositeAlpha CompositeAlpha

	// QueueFamilies holds both family indices when images are shared
	// concurrently, and is empty for exclusive ownership.
	QueueFamilies []uint32
}

// Concurrent reports whether the images are shared between queue families.
func (s SwapchainInfo) Concurrent() bool {
	return len(s.QueueFamilies) > 1
}

// Severity classifies a driver diagnostics message.
type Severity int

// Message severities, from least to most important.
const (
	SeverityDebug Severity = iota
	SeverityInformation
	SeverityPerformanceWarning
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInformation:
		return "information"
	case SeverityPerformanceWarning:
		return "performance warning"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Message is a single diagnostics message emitted by the driver.
type Message struct {
	Severity Severity
	Layer    string
	Code     int32
	Text     string
}

// DebugFunc receives driver diagnostics messages. Returning true asks the
// driver to abort the call that triggered the message.
type DebugFunc func(Message) bool

// CapabilitySource enumerates the names the driver supports.
type CapabilitySource interface {
	InstanceExtensions() ([]string, error)
	InstanceLayers() ([]string, error)
	DeviceExtensions(pd PhysicalDevice) ([]string, error)
}

// QueueQuerier reports queue families and their presentation support.
type QueueQuerier interface {
	QueueFamilies(pd PhysicalDevice) []QueueFamily
	SurfaceSupport(pd PhysicalDevice, family uint32, s Surface) (bool, error)
}

// SurfaceQuerier reports what a device can do with a surface.
type SurfaceQuerier interface {
	SurfaceCapabilities(pd PhysicalDevice, s Surface) (SurfaceCapabilities, error)
	SurfaceFormats(pd PhysicalDevice, s Surface) ([]SurfaceFormat, error)
	SurfacePresentModes(pd PhysicalDevice, s Surface) ([]PresentMode, error)
}

// Driver is the complete graphics driver protocol negotiated against.
// All calls are synchronous request/response.
type Driver interface {
	CapabilitySource
	QueueQuerier
	SurfaceQuerier

	CreateInstance(info InstanceInfo) (Instance, error)
	DestroyInstance(inst Instance)

	CreateDebugCallback(inst Instance, fn DebugFunc) (DebugCallback, error)
	DestroyDebugCallback(inst Instance, cb DebugCallback)

	DestroySurface(inst Instance, s Surface)

	PhysicalDevices(inst Instance) ([]PhysicalDevice, error)
	DeviceProperties(pd PhysicalDevice) PhysicalDeviceProperties

	CreateDevice(pd PhysicalDevice, info DeviceInfo) (Device, error)
	DestroyDevice(dev Device)
	Queue(dev Device, family uint32) Queue

	CreateSwapchain(dev Device, info SwapchainInfo) (Swapchain, error)
	DestroySwapchain(dev Device, sc Swapchain)
	SwapchainImages(dev Device, sc Swapchain) ([]Image, error)

	CreateImageView(dev Device, img Image, format Format) (ImageView, error)
	DestroyImageView(dev Device, view ImageView)
}
