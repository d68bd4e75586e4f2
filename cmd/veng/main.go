// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"flag"
	"runtime"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/loov/hrtime"
	log "github.com/sirupsen/logrus"

	"github.com/devblok/veng/core"
	"github.com/devblok/veng/device"
	"github.com/devblok/veng/device/vkd"
	"github.com/devblok/veng/window"
)

func init() {
	runtime.LockOSThread()
}

var envFile = flag.String("env", "", "Configuration file overriding the bundled defaults")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		entry := log.WithError(err)
		var de *device.DriverError
		if errors.As(err, &de) {
			entry = entry.WithField("status", de.Code)
		}
		entry.Fatal("Graphics bootstrap failed")
	}
}

func run() error {
	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}

	cfg, err := core.LoadConfiguration(files...)
	if err != nil {
		return errors.Wrap(err, "loading configuration")
	}
	log.SetLevel(cfg.LogLevel)

	if err := window.Init(); err != nil {
		return err
	}
	defer window.Quit()

	win, err := window.New(cfg.Renderer)
	if err != nil {
		return err
	}
	defer win.Destroy()

	if !win.MoveToMonitor(cfg.Renderer.Monitor) {
		log.WithField("monitor", cfg.Renderer.Monitor).Warn("Monitor not found, window left in place")
	}

	driver, err := vkd.New(window.ProcAddr())
	if err != nil {
		return err
	}

	ctx, err := core.Open(driver, win, cfg, log.StandardLogger())
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	timeService := core.NewTime(cfg.Time)
	defer timeService.Stop()

	frames := core.NewFrameMeter(time.Second)

EventLoop:
	for {
		select {
		case <-timeService.FpsTicker().C:
			if rate, ok := frames.Frame(hrtime.Now()); ok {
				log.WithFields(log.Fields{
					"fps":    rate,
					"target": timeService.Fps(),
				}).Debug("Frame rate")
			}
		case <-timeService.EventTicker().C:
			if !win.Poll() {
				break EventLoop
			}
		}
	}
	log.Info("Event loop exited")
	return nil
}
