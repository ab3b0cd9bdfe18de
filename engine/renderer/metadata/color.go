package metadata

import "github.com/spaghettifunk/prisma/engine/math"

// Color is an 8-bit SDR color. HDR values are produced by multiplying with an
// energy factor at bind time.
type Color struct {
	R, G, B, A uint8
}

var (
	White = Color{255, 255, 255, 255}
	Black = Color{0, 0, 0, 255}
	Blank = Color{0, 0, 0, 0}
)

func (c Color) ToVec4() math.Vec4 {
	return math.Vec4{
		X: float32(c.R) / 255.0,
		Y: float32(c.G) / 255.0,
		Z: float32(c.B) / 255.0,
		W: float32(c.A) / 255.0,
	}
}

func (c Color) ToVec3() math.Vec3 {
	return math.Vec3{
		X: float32(c.R) / 255.0,
		Y: float32(c.G) / 255.0,
		Z: float32(c.B) / 255.0,
	}
}
