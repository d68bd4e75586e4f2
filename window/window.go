// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package window opens the SDL window the graphics context presents to.
package window

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	glm "github.com/go-gl/mathgl/mgl32"
	"github.com/veandco/go-sdl2/sdl"

	"github.com/devblok/veng/core"
	"github.com/devblok/veng/device"
	"github.com/devblok/veng/device/vkd"
)

// Init starts the SDL video and event subsystems and loads the Vulkan
// library. Call Quit when done.
func Init() error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_EVENTS); err != nil {
		return errors.Wrap(err, "sdl.Init()")
	}
	if err := sdl.VulkanLoadLibrary(""); err != nil {
		sdl.Quit()
		return errors.Wrap(err, "sdl.VulkanLoadLibrary()")
	}
	return nil
}

// Quit undoes Init.
func Quit() {
	sdl.VulkanUnloadLibrary()
	sdl.Quit()
}

// ProcAddr returns vkGetInstanceProcAddr of the library SDL loaded,
// suitable for vkd.New.
func ProcAddr() unsafe.Pointer {
	return sdl.VulkanGetVkGetInstanceProcAddr()
}

// Window is a fixed size SDL window usable as a Vulkan surface.
type Window struct {
	window *sdl.Window
}

// New creates a non-resizable window of the configured size and title.
func New(cfg core.RendererConfiguration) (*Window, error) {
	window, err := sdl.CreateWindow(cfg.Title,
		sdl.WINDOWPOS_UNDEFINED,
		sdl.WINDOWPOS_UNDEFINED,
		int32(cfg.ScreenWidth),
		int32(cfg.ScreenHeight),
		sdl.WINDOW_VULKAN|sdl.WINDOW_SHOWN)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.CreateWindow()")
	}
	return &Window{window: window}, nil
}

// RequiredExtensions implements core.Window
func (w *Window) RequiredExtensions() []string {
	return w.window.VulkanGetInstanceExtensions()
}

// DrawableSize implements core.Window
func (w *Window) DrawableSize() (int, int) {
	width, height := w.window.VulkanGetDrawableSize()
	return int(width), int(height)
}

// CreateSurface implements core.Window
func (w *Window) CreateSurface(inst device.Instance) (device.Surface, error) {
	ptr, err := w.window.VulkanCreateSurface(inst)
	if err != nil {
		return nil, errors.Wrap(err, "sdl.VulkanCreateSurface()")
	}
	return vkd.Surface(ptr), nil
}

// MoveToMonitor centers the window in the usable area of monitor n.
// It returns false if there is no such monitor.
func (w *Window) MoveToMonitor(n int) bool {
	displays, err := sdl.GetNumVideoDisplays()
	if err != nil || n < 0 || n >= displays {
		return false
	}

	bounds, err := sdl.GetDisplayBounds(n)
	if err != nil {
		return false
	}
	usable, err := sdl.GetDisplayUsableBounds(n)
	if err != nil {
		return false
	}

	width, height := w.window.GetSize()
	pos := Center(
		glm.Vec2{float32(bounds.X), float32(bounds.Y)},
		glm.Vec2{float32(usable.W), float32(usable.H)},
		glm.Vec2{float32(width), float32(height)},
	)
	w.window.SetPosition(int32(pos.X()), int32(pos.Y()))
	return true
}

// Poll drains pending events. It returns false once the user asked to
// quit, by closing the window or pressing escape.
func (w *Window) Poll() bool {
	running := true
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch et := event.(type) {
		case *sdl.KeyboardEvent:
			if et.Keysym.Sym == sdl.K_ESCAPE {
				running = false
			}
		case *sdl.QuitEvent:
			running = false
		}
	}
	return running
}

// Destroy closes the window.
func (w *Window) Destroy() {
	if w.window != nil {
		w.window.Destroy()
		w.window = nil
	}
}
