package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

// Mat4 is a 4x4 matrix in column-major order, typically used to represent
// object transformations. Data[col*4+row].
type Mat4 struct {
	Data [16]float32
}

// AABB is an axis-aligned bounding box in the space of whatever owns it
// (model space for meshes, world space after Transform).
type AABB struct {
	Min Vec3
	Max Vec3
}

// Plane is a half-space: Normal.Dot(p) + D >= 0 means p is on the positive side.
type Plane struct {
	Normal Vec3
	D      float32
}

// Frustum is six planes with normals pointing inward.
type Frustum struct {
	Planes [6]Plane
}

// Rect is an integer pixel rectangle, used for light scissor bounds and blits.
type Rect struct {
	X, Y, W, H int32
}

const K_FLOAT_EPSILON float32 = 1.192092896e-07
