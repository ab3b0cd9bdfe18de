package math

// NewFrustumFromMatrix extracts the six clip planes from a view-projection
// matrix (Gribb/Hartmann). Normals point inward; planes are normalized so
// signed distances are in world units.
func NewFrustumFromMatrix(viewProj Mat4) Frustum {
	m := viewProj.Data

	row := func(i int) Vec4 {
		return Vec4{X: m[0*4+i], Y: m[1*4+i], Z: m[2*4+i], W: m[3*4+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)

	planes := [6]Vec4{
		r3.Add(r0),                // left
		r3.Add(r0.MulScalar(-1)),  // right
		r3.Add(r1),                // bottom
		r3.Add(r1.MulScalar(-1)),  // top
		r3.Add(r2),                // near
		r3.Add(r2.MulScalar(-1)),  // far
	}

	var f Frustum
	for i, p := range planes {
		n := Vec3{X: p.X, Y: p.Y, Z: p.Z}
		l := n.Length()
		if l > 0 {
			f.Planes[i] = Plane{Normal: n.MulScalar(1.0 / l), D: p.W / l}
		}
	}
	return f
}

// DistanceToPoint returns the signed distance from the plane to p.
func (p Plane) DistanceToPoint(point Vec3) float32 {
	return p.Normal.Dot(point) + p.D
}

// ContainsPoint reports whether a point is inside the frustum.
func (f Frustum) ContainsPoint(point Vec3) bool {
	for _, p := range f.Planes {
		if p.DistanceToPoint(point) < 0 {
			return false
		}
	}
	return true
}

// ContainsAABB is the standard box-vs-frustum separating-axis test using the
// positive vertex: for each plane, only the corner furthest along the plane
// normal is tested. Conservative: boxes partially inside report true.
func (f Frustum) ContainsAABB(box AABB) bool {
	for _, p := range f.Planes {
		v := box.Min
		if p.Normal.X >= 0 {
			v.X = box.Max.X
		}
		if p.Normal.Y >= 0 {
			v.Y = box.Max.Y
		}
		if p.Normal.Z >= 0 {
			v.Z = box.Max.Z
		}
		if p.DistanceToPoint(v) < 0 {
			return false
		}
	}
	return true
}

// ContainsSphere reports whether a sphere intersects the frustum.
func (f Frustum) ContainsSphere(center Vec3, radius float32) bool {
	for _, p := range f.Planes {
		if p.DistanceToPoint(center) < -radius {
			return false
		}
	}
	return true
}

// ScreenRect projects a world-space AABB through viewProj and returns the
// covering pixel rectangle, clamped to width x height. Boxes crossing the
// near plane degrade to the full viewport, matching what a screen-space
// light scissor needs.
func ScreenRect(box AABB, viewProj Mat4, width, height int32) Rect {
	full := Rect{X: 0, Y: 0, W: width, H: height}

	minX, minY := float32(1), float32(1)
	maxX, maxY := float32(-1), float32(-1)

	for _, corner := range box.Corners() {
		ndc, ok := viewProj.Project(corner)
		if !ok {
			return full
		}
		if ndc.X < minX {
			minX = ndc.X
		}
		if ndc.X > maxX {
			maxX = ndc.X
		}
		if ndc.Y < minY {
			minY = ndc.Y
		}
		if ndc.Y > maxY {
			maxY = ndc.Y
		}
	}

	if maxX < minX || maxY < minY {
		return Rect{}
	}

	clampNDC := func(v float32) float32 {
		return Clamp(v, -1, 1)
	}

	x0 := int32((clampNDC(minX)*0.5 + 0.5) * float32(width))
	y0 := int32((clampNDC(minY)*0.5 + 0.5) * float32(height))
	x1 := int32((clampNDC(maxX)*0.5 + 0.5) * float32(width))
	y1 := int32((clampNDC(maxY)*0.5 + 0.5) * float32(height))

	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}
