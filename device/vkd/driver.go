// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package vkd implements device.Driver on top of the Vulkan loader.
package vkd

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	vk "github.com/devblok/vulkan"

	"github.com/devblok/veng/device"
)

// portabilityEnumerateBit is VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR.
const portabilityEnumerateBit vk.InstanceCreateFlags = 0x1

// Driver talks to the Vulkan loader. It keeps no state of its own,
// every handle it returns is owned by the caller.
type Driver struct{}

// New loads the Vulkan entry points. When procAddr is nil the default
// loader of the platform is used, otherwise procAddr must point to
// vkGetInstanceProcAddr, as handed out by the windowing library.
func New(procAddr unsafe.Pointer) (*Driver, error) {
	if procAddr == nil {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			return nil, errors.Wrap(err, "vk.SetDefaultGetInstanceProcAddr()")
		}
	} else {
		vk.SetGetInstanceProcAddr(procAddr)
	}

	if err := vk.Init(); err != nil {
		return nil, errors.Wrap(err, "vk.Init()")
	}
	return &Driver{}, nil
}

// Surface wraps a native VkSurfaceKHR created outside the driver,
// typically by the windowing library.
func Surface(ptr unsafe.Pointer) device.Surface {
	return vk.SurfaceFromPointer(uintptr(ptr))
}

func check(call string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	description := "unknown error"
	if err := vk.Error(ret); err != nil {
		description = err.Error()
	}
	return device.NewDriverError(call, int32(ret), description)
}

func version(v device.Version) uint32 {
	return vk.MakeVersion(v.Major, v.Minor, v.Patch)
}

// InstanceExtensions implements device.Driver
func (Driver) InstanceExtensions() ([]string, error) {
	var count uint32
	if err := check("vk.EnumerateInstanceExtensionProperties", vk.EnumerateInstanceExtensionProperties("", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := check("vk.EnumerateInstanceExtensionProperties", vk.EnumerateInstanceExtensionProperties("", &count, props)); err != nil {
		return nil, err
	}
	return extensionNames(props[:count]), nil
}

// InstanceLayers implements device.Driver
func (Driver) InstanceLayers() ([]string, error) {
	var count uint32
	if err := check("vk.EnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.LayerProperties, count)
	if err := check("vk.EnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, props)); err != nil {
		return nil, err
	}

	names := make([]string, 0, count)
	for _, layer := range props[:count] {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// DeviceExtensions implements device.Driver
func (Driver) DeviceExtensions(pd device.PhysicalDevice) ([]string, error) {
	var count uint32
	if err := check("vk.EnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd.(vk.PhysicalDevice), "", &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.ExtensionProperties, count)
	if err := check("vk.EnumerateDeviceExtensionProperties", vk.EnumerateDeviceExtensionProperties(pd.(vk.PhysicalDevice), "", &count, props)); err != nil {
		return nil, err
	}
	return extensionNames(props[:count]), nil
}

func extensionNames(props []vk.ExtensionProperties) []string {
	names := make([]string, 0, len(props))
	for _, ext := range props {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names
}

// QueueFamilies implements device.Driver
func (Driver) QueueFamilies(pd device.PhysicalDevice) []device.QueueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd.(vk.PhysicalDevice), &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd.(vk.PhysicalDevice), &count, props)

	families := make([]device.QueueFamily, count)
	for i := range families {
		props[i].Deref()
		families[i] = device.QueueFamily{
			Flags:      device.QueueFlags(props[i].QueueFlags),
			QueueCount: props[i].QueueCount,
		}
	}
	return families
}

// SurfaceSupport implements device.Driver
func (Driver) SurfaceSupport(pd device.PhysicalDevice, family uint32, s device.Surface) (bool, error) {
	var supported vk.Bool32
	if err := check("vk.GetPhysicalDeviceSurfaceSupport", vk.GetPhysicalDeviceSurfaceSupport(pd.(vk.PhysicalDevice), family, s.(vk.Surface), &supported)); err != nil {
		return false, err
	}
	return supported.B(), nil
}

// SurfaceCapabilities implements device.Driver
func (Driver) SurfaceCapabilities(pd device.PhysicalDevice, s device.Surface) (device.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	if err := check("vk.GetPhysicalDeviceSurfaceCapabilities", vk.GetPhysicalDeviceSurfaceCapabilities(pd.(vk.PhysicalDevice), s.(vk.Surface), &caps)); err != nil {
		return device.SurfaceCapabilities{}, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	return device.SurfaceCapabilities{
		MinImageCount:           caps.MinImageCount,
		MaxImageCount:           caps.MaxImageCount,
		CurrentExtent:           extent(caps.CurrentExtent),
		MinImageExtent:          extent(caps.MinImageExtent),
		MaxImageExtent:          extent(caps.MaxImageExtent),
		CurrentTransform:        device.SurfaceTransform(caps.CurrentTransform),
		SupportedCompositeAlpha: device.CompositeAlpha(caps.SupportedCompositeAlpha),
	}, nil
}

func extent(e vk.Extent2D) device.Extent2D {
	return device.Extent2D{Width: e.Width, Height: e.Height}
}

// SurfaceFormats implements device.Driver
func (Driver) SurfaceFormats(pd device.PhysicalDevice, s device.Surface) ([]device.SurfaceFormat, error) {
	var count uint32
	if err := check("vk.GetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(pd.(vk.PhysicalDevice), s.(vk.Surface), &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.SurfaceFormat, count)
	if err := check("vk.GetPhysicalDeviceSurfaceFormats", vk.GetPhysicalDeviceSurfaceFormats(pd.(vk.PhysicalDevice), s.(vk.Surface), &count, props)); err != nil {
		return nil, err
	}

	formats := make([]device.SurfaceFormat, 0, count)
	for _, f := range props[:count] {
		f.Deref()
		formats = append(formats, device.SurfaceFormat{
			Format:     device.Format(f.Format),
			ColorSpace: device.ColorSpace(f.ColorSpace),
		})
	}
	return formats, nil
}

// SurfacePresentModes implements device.Driver
func (Driver) SurfacePresentModes(pd device.PhysicalDevice, s device.Surface) ([]device.PresentMode, error) {
	var count uint32
	if err := check("vk.GetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(pd.(vk.PhysicalDevice), s.(vk.Surface), &count, nil)); err != nil {
		return nil, err
	}
	props := make([]vk.PresentMode, count)
	if err := check("vk.GetPhysicalDeviceSurfacePresentModes", vk.GetPhysicalDeviceSurfacePresentModes(pd.(vk.PhysicalDevice), s.(vk.Surface), &count, props)); err != nil {
		return nil, err
	}

	modes := make([]device.PresentMode, count)
	for i, m := range props[:count] {
		modes[i] = device.PresentMode(m)
	}
	return modes, nil
}

// CreateInstance implements device.Driver
func (Driver) CreateInstance(info device.InstanceInfo) (device.Instance, error) {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         version(info.APIVersion),
		ApplicationVersion: version(info.ApplicationVersion),
		PApplicationName:   safeString(info.ApplicationName),
		EngineVersion:      version(info.EngineVersion),
		PEngineName:        safeString(info.EngineName),
	}

	instanceInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        appInfo,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
		EnabledLayerCount:       uint32(len(info.Layers)),
		PpEnabledLayerNames:     safeStrings(info.Layers),
	}
	if info.EnumeratePortability {
		instanceInfo.Flags |= portabilityEnumerateBit
	}

	var instance vk.Instance
	if err := check("vk.CreateInstance", vk.CreateInstance(&instanceInfo, nil, &instance)); err != nil {
		return nil, err
	}
	vk.InitInstance(instance)
	return instance, nil
}

// DestroyInstance implements device.Driver
func (Driver) DestroyInstance(inst device.Instance) {
	vk.DestroyInstance(inst.(vk.Instance), nil)
}

// PhysicalDevices implements device.Driver
func (Driver) PhysicalDevices(inst device.Instance) ([]device.PhysicalDevice, error) {
	var count uint32
	if err := check("vk.EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(inst.(vk.Instance), &count, nil)); err != nil {
		return nil, err
	}
	handles := make([]vk.PhysicalDevice, count)
	if err := check("vk.EnumeratePhysicalDevices", vk.EnumeratePhysicalDevices(inst.(vk.Instance), &count, handles)); err != nil {
		return nil, err
	}

	devices := make([]device.PhysicalDevice, count)
	for i := range devices {
		devices[i] = handles[i]
	}
	return devices, nil
}

// DeviceProperties implements device.Driver
func (Driver) DeviceProperties(pd device.PhysicalDevice) device.PhysicalDeviceProperties {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(pd.(vk.PhysicalDevice), &props)
	props.Deref()

	return device.PhysicalDeviceProperties{
		ID:            int(props.DeviceID),
		VendorID:      int(props.VendorID),
		DriverVersion: int(props.DriverVersion),
		APIVersion:    int(props.ApiVersion),
		Type:          device.DeviceType(props.DeviceType),
		Name:          vk.ToString(props.DeviceName[:]),
	}
}

// CreateDevice implements device.Driver
func (Driver) CreateDevice(pd device.PhysicalDevice, info device.DeviceInfo) (device.Device, error) {
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(info.QueueFamilies))
	for i, family := range info.QueueFamilies {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	dci := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(info.Extensions)),
		PpEnabledExtensionNames: safeStrings(info.Extensions),
	}

	var dev vk.Device
	if err := check("vk.CreateDevice", vk.CreateDevice(pd.(vk.PhysicalDevice), &dci, nil, &dev)); err != nil {
		return nil, err
	}
	return dev, nil
}

// DestroyDevice implements device.Driver
func (Driver) DestroyDevice(dev device.Device) {
	vk.DestroyDevice(dev.(vk.Device), nil)
}

// Queue implements device.Driver
func (Driver) Queue(dev device.Device, family uint32) device.Queue {
	var queue vk.Queue
	vk.GetDeviceQueue(dev.(vk.Device), family, 0, &queue)
	return queue
}

// CreateSwapchain implements device.Driver
func (Driver) CreateSwapchain(dev device.Device, info device.SwapchainInfo) (device.Swapchain, error) {
	scci := vk.SwapchainCreateInfo{
		SType:           vk.StructureTypeSwapchainCreateInfo,
		Surface:         info.Surface.(vk.Surface),
		MinImageCount:   info.MinImageCount,
		ImageFormat:     vk.Format(info.Format.Format),
		ImageColorSpace: vk.ColorSpace(info.Format.ColorSpace),
		ImageExtent: vk.Extent2D{
			Width:  info.Extent.Width,
			Height: info.Extent.Height,
		},
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     vk.SurfaceTransformFlagBits(info.PreTransform),
		CompositeAlpha:   vk.CompositeAlphaFlagBits(info.CompositeAlpha),
		PresentMode:      vk.PresentMode(info.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}
	if info.Concurrent() {
		scci.ImageSharingMode = vk.SharingModeConcurrent
		scci.QueueFamilyIndexCount = uint32(len(info.QueueFamilies))
		scci.PQueueFamilyIndices = info.QueueFamilies
	}

	var swapchain vk.Swapchain
	if err := check("vk.CreateSwapchain", vk.CreateSwapchain(dev.(vk.Device), &scci, nil, &swapchain)); err != nil {
		return nil, err
	}
	return swapchain, nil
}

// DestroySwapchain implements device.Driver
func (Driver) DestroySwapchain(dev device.Device, sc device.Swapchain) {
	vk.DestroySwapchain(dev.(vk.Device), sc.(vk.Swapchain), nil)
}

// SwapchainImages implements device.Driver
func (Driver) SwapchainImages(dev device.Device, sc device.Swapchain) ([]device.Image, error) {
	var count uint32
	if err := check("vk.GetSwapchainImages", vk.GetSwapchainImages(dev.(vk.Device), sc.(vk.Swapchain), &count, nil)); err != nil {
		return nil, err
	}
	handles := make([]vk.Image, count)
	if err := check("vk.GetSwapchainImages", vk.GetSwapchainImages(dev.(vk.Device), sc.(vk.Swapchain), &count, handles)); err != nil {
		return nil, err
	}

	images := make([]device.Image, count)
	for i := range images {
		images[i] = handles[i]
	}
	return images, nil
}

// CreateImageView implements device.Driver
func (Driver) CreateImageView(dev device.Device, img device.Image, format device.Format) (device.ImageView, error) {
	ivci := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img.(vk.Image),
		ViewType: vk.ImageViewType2d,
		Format:   vk.Format(format),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			BaseMipLevel:   0,
			LevelCount:     1,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}

	var view vk.ImageView
	if err := check("vk.CreateImageView", vk.CreateImageView(dev.(vk.Device), &ivci, nil, &view)); err != nil {
		return nil, err
	}
	return view, nil
}

// DestroyImageView implements device.Driver
func (Driver) DestroyImageView(dev device.Device, view device.ImageView) {
	vk.DestroyImageView(dev.(vk.Device), view.(vk.ImageView), nil)
}

// DestroySurface implements device.Driver
func (Driver) DestroySurface(inst device.Instance, s device.Surface) {
	vk.DestroySurface(inst.(vk.Instance), s.(vk.Surface), nil)
}
