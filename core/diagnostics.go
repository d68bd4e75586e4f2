// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	log "github.com/sirupsen/logrus"

	"github.com/devblok/veng/device"
)

// Diagnostics forwards driver validation messages to a logger.
type Diagnostics struct {
	log log.FieldLogger
}

// NewDiagnostics creates a message handler logging to logger.
func NewDiagnostics(logger log.FieldLogger) *Diagnostics {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Diagnostics{log: logger}
}

// Handle logs m at a level matching its severity. It never asks the
// driver to abort the call that produced m.
func (d *Diagnostics) Handle(m device.Message) bool {
	entry := d.log.WithFields(log.Fields{
		"layer":    m.Layer,
		"code":     m.Code,
		"severity": m.Severity,
	})
	switch m.Severity {
	case device.SeverityError:
		entry.Error(m.Text)
	case device.SeverityWarning, device.SeverityPerformanceWarning:
		entry.Warn(m.Text)
	default:
		entry.Debug(m.Text)
	}
	return false
}
