// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/loov/hrtime"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/veng/device"
)

// ErrAlreadyInitialized is returned by Initialize on a context that is
// past StageUninitialized.
var ErrAlreadyInitialized = errors.New("context already initialized")

// Context owns every driver object of the bootstrap. Objects are created
// by Initialize in stage order and destroyed by Destroy in reverse.
// A Context is not safe for concurrent use.
type Context struct {
	id     uuid.UUID
	driver device.Driver
	window Window
	cfg    Configuration
	log    log.FieldLogger

	diagnostics        *Diagnostics
	diagnosticsEnabled bool

	stage  Stage
	guards []func()

	instance  device.Instance
	debug     device.DebugCallback
	surface   device.Surface
	candidate device.Candidate

	device        device.Device
	indices       device.QueueFamilyIndices
	graphicsQueue device.Queue
	presentQueue  device.Queue

	swapchainConfig device.SwapchainConfig
	swapchain       device.Swapchain
	images          []device.Image
	views           []device.ImageView
}

// New creates an uninitialized context. A nil logger uses the standard
// logger.
func New(d device.Driver, w Window, cfg Configuration, logger log.FieldLogger) *Context {
	if logger == nil {
		logger = log.StandardLogger()
	}
	id := uuid.New()
	entry := logger.WithField("context", id.String())

	return &Context{
		id:          id,
		driver:      d,
		window:      w,
		cfg:         cfg,
		log:         entry,
		diagnostics: NewDiagnostics(entry),
	}
}

// Open creates and initializes a context. On error nothing created along
// the way is left alive and the returned context is nil.
func Open(d device.Driver, w Window, cfg Configuration, logger log.FieldLogger) (*Context, error) {
	c := New(d, w, cfg, logger)
	if err := c.Initialize(); err != nil {
		return nil, err
	}
	return c, nil
}

// Initialize runs every stage in order. When a stage fails the objects
// created so far are destroyed and the context returns to
// StageUninitialized. The error is wrapped with the stage name.
func (c *Context) Initialize() error {
	if c.stage != StageUninitialized {
		return ErrAlreadyInitialized
	}

	stages := []struct {
		stage Stage
		run   func() error
	}{
		{StageConnectionOpen, c.createInstance},
		{StageDiagnosticsAttached, c.attachDiagnostics},
		{StageSurfaceBound, c.bindSurface},
		{StageDeviceSelected, c.selectDevice},
		{StageLogicalDeviceReady, c.createDevice},
		{StageSwapchainReady, c.createSwapchain},
		{StageImageViewsReady, c.createImageViews},
	}

	total := hrtime.Now()
	for _, s := range stages {
		if s.stage == StageDiagnosticsAttached && !c.diagnosticsEnabled {
			continue
		}

		start := hrtime.Now()
		if err := s.run(); err != nil {
			c.log.WithField("stage", s.stage).WithError(err).Error("Initialization failed")
			c.Destroy()
			return errors.Wrapf(err, "%s", s.stage)
		}
		c.stage = s.stage
		c.log.WithFields(log.Fields{
			"stage":   s.stage,
			"elapsed": hrtime.Since(start),
		}).Debug("Stage complete")
	}

	c.log.WithFields(log.Fields{
		"device":    c.candidate.Properties.Name,
		"format":    c.swapchainConfig.SurfaceFormat.Format,
		"present":   c.swapchainConfig.PresentMode,
		"extent":    c.swapchainConfig.Extent,
		"images":    len(c.images),
		"elapsed":   hrtime.Since(total),
		"validated": c.diagnosticsEnabled,
	}).Info("Graphics context ready")
	return nil
}

// guard registers fn to run on Destroy. Guards run in reverse order of
// registration.
func (c *Context) guard(fn func()) {
	c.guards = append(c.guards, fn)
}

// Destroy releases every object the context created, newest first, and
// returns the context to StageUninitialized. It is safe to call more
// than once.
func (c *Context) Destroy() {
	for i := len(c.guards) - 1; i >= 0; i-- {
		c.guards[i]()
	}
	c.guards = nil
	c.candidate = device.Candidate{}
	c.indices = device.QueueFamilyIndices{}
	c.swapchainConfig = device.SwapchainConfig{}
	c.images = nil
	c.diagnosticsEnabled = false
	c.stage = StageUninitialized
}

func (c *Context) createInstance() error {
	prober := device.NewProber(c.driver)
	available, err := prober.Supported(device.InstanceExtensions)
	if err != nil {
		return err
	}

	extensions := appendUnique(nil, c.window.RequiredExtensions()...)
	extensions = appendUnique(extensions, c.cfg.Instance.Extensions...)
	if missing := device.Missing(extensions, available); len(missing) > 0 {
		return errors.Mark(errors.Newf("missing instance extensions: %v", missing), device.ErrCapabilityMissing)
	}

	layers := appendUnique(nil, c.cfg.Instance.Layers...)
	if len(layers) > 0 {
		if err := prober.Require(device.InstanceLayers, layers); err != nil {
			return err
		}
	}

	portability := c.cfg.Instance.Portability && available.Has(device.PortabilityEnumerationExtension)
	if portability {
		extensions = appendUnique(extensions, device.PortabilityEnumerationExtension)
	}

	if c.cfg.Instance.Validation {
		layer := c.cfg.Instance.ValidationLayer
		supported, err := prober.Supported(device.InstanceLayers)
		if err != nil {
			return err
		}

		switch {
		case !supported.Has(layer):
			c.log.WithField("layer", layer).Warn("Validation layer not supported, diagnostics disabled")
		case !available.Has(device.DebugReportExtension):
			c.log.WithField("extension", device.DebugReportExtension).Warn("Debug report not supported, diagnostics disabled")
		default:
			layers = appendUnique(layers, layer)
			extensions = appendUnique(extensions, device.DebugReportExtension)
			c.diagnosticsEnabled = true
		}
	}

	app := c.cfg.Application
	inst, err := c.driver.CreateInstance(device.InstanceInfo{
		ApplicationName:      app.Name,
		ApplicationVersion:   app.Version,
		EngineName:           app.EngineName,
		EngineVersion:        app.EngineVersion,
		APIVersion:           APIVersion,
		Extensions:           extensions,
		Layers:               layers,
		EnumeratePortability: portability,
	})
	if err != nil {
		return err
	}
	c.instance = inst
	c.guard(func() {
		c.driver.DestroyInstance(c.instance)
		c.instance = nil
	})

	c.log.WithFields(log.Fields{
		"extensions":  extensions,
		"layers":      layers,
		"portability": portability,
	}).Debug("Instance created")
	return nil
}

func (c *Context) attachDiagnostics() error {
	cb, err := c.driver.CreateDebugCallback(c.instance, c.diagnostics.Handle)
	if err != nil {
		return err
	}
	c.debug = cb
	c.guard(func() {
		c.driver.DestroyDebugCallback(c.instance, c.debug)
		c.debug = nil
	})
	return nil
}

func (c *Context) bindSurface() error {
	s, err := c.window.CreateSurface(c.instance)
	if err != nil {
		return err
	}
	c.surface = s
	c.guard(func() {
		c.driver.DestroySurface(c.instance, c.surface)
		c.surface = nil
	})
	return nil
}

func (c *Context) selectDevice() error {
	selector := device.NewSelector(c.driver, c.surface, c.cfg.Renderer.DeviceExtensions, c.log)
	candidate, err := selector.Pick(c.instance)
	if err != nil {
		return err
	}
	c.candidate = candidate
	return nil
}

func (c *Context) createDevice() error {
	pd := c.candidate.Device
	indices, err := device.NewQueueFamilyResolver(c.driver).Resolve(pd, c.surface)
	if err != nil {
		return err
	}
	if !indices.IsValid() {
		return errors.Mark(errors.Newf("incomplete queue families %s", indices), device.ErrUnsuitable)
	}

	extensions := appendUnique(nil, c.cfg.Renderer.DeviceExtensions...)
	if c.candidate.Extensions.Has(device.PortabilitySubsetExtension) {
		extensions = appendUnique(extensions, device.PortabilitySubsetExtension)
	}

	dev, err := c.driver.CreateDevice(pd, device.DeviceInfo{
		QueueFamilies: indices.Unique(),
		Extensions:    extensions,
	})
	if err != nil {
		return err
	}
	c.device = dev
	c.guard(func() {
		c.driver.DestroyDevice(c.device)
		c.device = nil
		c.graphicsQueue = nil
		c.presentQueue = nil
	})

	c.indices = indices
	c.graphicsQueue = c.driver.Queue(dev, *indices.Graphics)
	c.presentQueue = c.driver.Queue(dev, *indices.Presentation)
	return nil
}

func (c *Context) createSwapchain() error {
	negotiator := device.NewSwapchainNegotiator(c.driver)
	props, err := negotiator.Query(c.candidate.Device, c.surface)
	if err != nil {
		return err
	}

	width, height := c.window.DrawableSize()
	cfg, err := negotiator.Configure(props, width, height)
	if err != nil {
		return err
	}

	info := device.SwapchainInfo{
		Surface:        c.surface,
		MinImageCount:  cfg.ImageCount,
		Format:         cfg.SurfaceFormat,
		Extent:         cfg.Extent,
		PresentMode:    cfg.PresentMode,
		PreTransform:   cfg.PreTransform,
		CompositeAlpha: cfg.CompositeAlpha,
	}
	if !c.indices.Shared() {
		info.QueueFamilies = c.indices.Unique()
	}

	sc, err := c.driver.CreateSwapchain(c.device, info)
	if err != nil {
		return err
	}
	c.swapchain = sc
	c.guard(func() {
		c.driver.DestroySwapchain(c.device, c.swapchain)
		c.swapchain = nil
	})
	c.swapchainConfig = cfg

	images, err := c.driver.SwapchainImages(c.device, sc)
	if err != nil {
		return err
	}
	c.images = images
	return nil
}

func (c *Context) createImageViews() error {
	c.views = make([]device.ImageView, 0, len(c.images))
	c.guard(func() {
		c.views = nil
	})

	for i, img := range c.images {
		view, err := c.driver.CreateImageView(c.device, img, c.swapchainConfig.SurfaceFormat.Format)
		if err != nil {
			return errors.Wrapf(err, "image %d", i)
		}
		c.views = append(c.views, view)
		c.guard(func() {
			c.driver.DestroyImageView(c.device, view)
		})
	}
	return nil
}

func appendUnique(list []string, names ...string) []string {
	for _, name := range names {
		found := false
		for _, existing := range list {
			if existing == name {
				found = true
				break
			}
		}
		if !found {
			list = append(list, name)
		}
	}
	return list
}

// ID identifies the context in log output.
func (c *Context) ID() uuid.UUID {
	return c.id
}

// Stage returns the last stage completed.
func (c *Context) Stage() Stage {
	return c.stage
}

// DiagnosticsEnabled reports whether validation messages are forwarded
// to the log.
func (c *Context) DiagnosticsEnabled() bool {
	return c.diagnosticsEnabled
}

// Instance returns the driver instance, nil before StageConnectionOpen.
func (c *Context) Instance() device.Instance {
	return c.instance
}

// Surface returns the window surface.
func (c *Context) Surface() device.Surface {
	return c.surface
}

// Candidate returns the selected physical device and what was learned
// about it during selection.
func (c *Context) Candidate() device.Candidate {
	return c.candidate
}

// Device returns the logical device.
func (c *Context) Device() device.Device {
	return c.device
}

// Queues returns the graphics and presentation queues. They are the same
// queue when both roles share a family.
func (c *Context) Queues() (graphics, present device.Queue) {
	return c.graphicsQueue, c.presentQueue
}

// QueueFamilies returns the families the logical device was created with.
func (c *Context) QueueFamilies() device.QueueFamilyIndices {
	return c.indices
}

// SwapchainConfig returns the negotiated swapchain configuration.
func (c *Context) SwapchainConfig() device.SwapchainConfig {
	return c.swapchainConfig
}

// Swapchain returns the swapchain handle.
func (c *Context) Swapchain() device.Swapchain {
	return c.swapchain
}

// ImageViews returns a copy of the per-image views, in swapchain image
// order.
func (c *Context) ImageViews() []device.ImageView {
	views := make([]device.ImageView, len(c.views))
	copy(views, c.views)
	return views
}
