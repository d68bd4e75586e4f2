// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package environ_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/devblok/veng/internal/environ"
)

func TestCapture(t *testing.T) {
	c := qt.New(t)
	c.Setenv("VENG_ENVIRON_TEST", "a=b")

	values := environ.Capture()
	c.Assert(values["VENG_ENVIRON_TEST"], qt.Equals, "a=b")
	c.Assert(environ.Startup, qt.Not(qt.IsNil))
	_, ok := environ.Startup["VENG_ENVIRON_TEST"]
	c.Assert(ok, qt.IsFalse)
}
