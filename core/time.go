// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"time"
)

const defaultEventPollDelay = 50

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) Time {
	var interval time.Duration
	if cfg.FramesPerSecond <= 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / (time.Duration)(cfg.FramesPerSecond)
	}

	delay := cfg.EventPollDelay
	if delay <= 0 {
		delay = defaultEventPollDelay
	}

	return Time{
		fps:            cfg.FramesPerSecond,
		fpsTicker:      time.NewTicker(interval),
		eventPollDelay: delay,
		eventTicker:    time.NewTicker(time.Duration(delay) * time.Millisecond),
	}
}

// Time contains all the time services and tickers
type Time struct {
	fps       int
	fpsTicker *time.Ticker

	eventPollDelay int
	eventTicker    *time.Ticker
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// EventPollDelay gets the delay between event polls
func (t *Time) EventPollDelay() time.Duration {
	return time.Duration(t.eventPollDelay) * time.Millisecond
}

// EventTicker gets the initialized event ticker for the event loop
func (t *Time) EventTicker() *time.Ticker {
	return t.eventTicker
}

// Stop stops both tickers
func (t *Time) Stop() {
	t.fpsTicker.Stop()
	t.eventTicker.Stop()
}

// FrameMeter counts frames and reports the achieved rate once per window.
// Timestamps are monotonic readings such as hrtime.Now.
type FrameMeter struct {
	window  time.Duration
	started bool
	start   time.Duration
	frames  int
}

// NewFrameMeter creates a meter reporting every window. A non-positive
// window reports every second.
func NewFrameMeter(window time.Duration) *FrameMeter {
	if window <= 0 {
		window = time.Second
	}
	return &FrameMeter{window: window}
}

// Frame records a frame at now. Once a full window has passed since the
// first frame of the window it returns the frames per second over it and
// starts a new window.
func (m *FrameMeter) Frame(now time.Duration) (float64, bool) {
	if !m.started {
		m.started = true
		m.start = now
		return 0, false
	}
	m.frames++

	elapsed := now - m.start
	if elapsed < m.window {
		return 0, false
	}
	rate := float64(m.frames) / elapsed.Seconds()
	m.start = now
	m.frames = 0
	return rate, true
}
