// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkd

import (
	"unsafe"

	vk "github.com/devblok/vulkan"

	"github.com/devblok/veng/device"
)

const allReports = vk.DebugReportInformationBit |
	vk.DebugReportWarningBit |
	vk.DebugReportPerformanceWarningBit |
	vk.DebugReportErrorBit |
	vk.DebugReportDebugBit

// CreateDebugCallback implements device.Driver
func (Driver) CreateDebugCallback(inst device.Instance, fn device.DebugFunc) (device.DebugCallback, error) {
	dbgCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(allReports),
		PfnCallback: reporter(fn),
	}

	var cb vk.DebugReportCallback
	if err := check("vk.CreateDebugReportCallback", vk.CreateDebugReportCallback(inst.(vk.Instance), &dbgCreateInfo, nil, &cb)); err != nil {
		return nil, err
	}
	return cb, nil
}

// DestroyDebugCallback implements device.Driver
func (Driver) DestroyDebugCallback(inst device.Instance, cb device.DebugCallback) {
	vk.DestroyDebugReportCallback(inst.(vk.Instance), cb.(vk.DebugReportCallback), nil)
}

func reporter(fn device.DebugFunc) vk.DebugReportCallbackFunc {
	return func(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
		object uint, location uint, messageCode int32, pLayerPrefix string,
		pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

		abort := fn(device.Message{
			Severity: severity(flags),
			Layer:    pLayerPrefix,
			Code:     messageCode,
			Text:     pMessage,
		})
		if abort {
			return vk.True
		}
		return vk.False
	}
}

func severity(flags vk.DebugReportFlags) device.Severity {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		return device.SeverityError
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		return device.SeverityWarning
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		return device.SeverityPerformanceWarning
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		return device.SeverityInformation
	}
	return device.SeverityDebug
}
