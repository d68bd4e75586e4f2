// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package environ records the process environment as it was before any
// package initializer rewrote it. github.com/gobuffalo/envy overloads the
// working directory's .env into the process environment from its init, and
// this package sorts and initializes ahead of it.
package environ

import (
	"os"
	"strings"
)

// Startup is the environment captured when the package was initialized.
var Startup = Capture()

// Capture returns the current process environment as a map.
func Capture() map[string]string {
	env := os.Environ()
	values := make(map[string]string, len(env))
	for _, kv := range env {
		if i := strings.IndexByte(kv, '='); i > 0 {
			values[kv[:i]] = kv[i+1:]
		}
	}
	return values
}
