// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package core sequences the driver bootstrap: instance, diagnostics,
// surface, physical device, logical device, swapchain and image views.
package core

import (
	"github.com/devblok/veng/device"
)

// Window is the platform window the context renders into.
type Window interface {
	// RequiredExtensions returns the instance extensions the window
	// system needs to create a surface
	RequiredExtensions() []string

	// DrawableSize returns the size of the drawable area in pixels,
	// which may differ from the window size on high density displays
	DrawableSize() (width, height int)

	// CreateSurface binds the window to inst. The surface is owned
	// by the caller and destroyed through the driver
	CreateSurface(inst device.Instance) (device.Surface, error)
}

// Stage is how far a Context got through initialization.
type Stage int

// Initialization stages, in the order they are reached.
const (
	StageUninitialized Stage = iota
	StageConnectionOpen
	StageDiagnosticsAttached
	StageSurfaceBound
	StageDeviceSelected
	StageLogicalDeviceReady
	StageSwapchainReady
	StageImageViewsReady
)

func (s Stage) String() string {
	switch s {
	case StageUninitialized:
		return "uninitialized"
	case StageConnectionOpen:
		return "instance"
	case StageDiagnosticsAttached:
		return "diagnostics"
	case StageSurfaceBound:
		return "surface"
	case StageDeviceSelected:
		return "device selection"
	case StageLogicalDeviceReady:
		return "logical device"
	case StageSwapchainReady:
		return "swapchain"
	case StageImageViewsReady:
		return "image views"
	}
	return "unknown"
}
