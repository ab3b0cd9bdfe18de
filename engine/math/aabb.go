package math

func NewAABB(min, max Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// IsValid reports whether the box has positive extent on every axis. The
// zero AABB is treated as "no bounds supplied".
func (b AABB) IsValid() bool {
	return b.Max.X > b.Min.X && b.Max.Y > b.Min.Y && b.Max.Z > b.Min.Z
}

func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).MulScalar(0.5)
}

// Transform computes the world-space AABB of the box under an affine
// transform (Arvo's method: per-axis min/max accumulation).
func (b AABB) Transform(m Mat4) AABB {
	t := m.Translation()
	out := AABB{Min: t, Max: t}

	bmin := [3]float32{b.Min.X, b.Min.Y, b.Min.Z}
	bmax := [3]float32{b.Max.X, b.Max.Y, b.Max.Z}
	omin := [3]float32{t.X, t.Y, t.Z}
	omax := [3]float32{t.X, t.Y, t.Z}

	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			a := m.Data[col*4+row] * bmin[col]
			c := m.Data[col*4+row] * bmax[col]
			if a < c {
				omin[row] += a
				omax[row] += c
			} else {
				omin[row] += c
				omax[row] += a
			}
		}
	}

	out.Min = Vec3{X: omin[0], Y: omin[1], Z: omin[2]}
	out.Max = Vec3{X: omax[0], Y: omax[1], Z: omax[2]}
	return out
}

// Overlaps reports whether two boxes intersect, boundaries included.
func (b AABB) Overlaps(other AABB) bool {
	return b.Min.X <= other.Max.X && b.Max.X >= other.Min.X &&
		b.Min.Y <= other.Max.Y && b.Max.Y >= other.Min.Y &&
		b.Min.Z <= other.Max.Z && b.Max.Z >= other.Min.Z
}

// Merge returns the union of two boxes.
func (b AABB) Merge(other AABB) AABB {
	out := b
	if other.Min.X < out.Min.X {
		out.Min.X = other.Min.X
	}
	if other.Min.Y < out.Min.Y {
		out.Min.Y = other.Min.Y
	}
	if other.Min.Z < out.Min.Z {
		out.Min.Z = other.Min.Z
	}
	if other.Max.X > out.Max.X {
		out.Max.X = other.Max.X
	}
	if other.Max.Y > out.Max.Y {
		out.Max.Y = other.Max.Y
	}
	if other.Max.Z > out.Max.Z {
		out.Max.Z = other.Max.Z
	}
	return out
}

// Corners returns the 8 corner points of the box.
func (b AABB) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}
