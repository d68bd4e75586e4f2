// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package window

import (
	"math"

	glm "github.com/go-gl/mathgl/mgl32"
)

// Center returns the top left corner that places a window of the given
// size in the middle of a monitor's work area. Halves are rounded down
// so the result stays on the pixel grid.
func Center(monitorPos, workArea, size glm.Vec2) glm.Vec2 {
	half := func(v glm.Vec2) glm.Vec2 {
		return glm.Vec2{
			float32(math.Floor(float64(v.X()) / 2)),
			float32(math.Floor(float64(v.Y()) / 2)),
		}
	}
	return monitorPos.Add(half(workArea)).Sub(half(size))
}
