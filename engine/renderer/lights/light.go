package lights

import (
	gomath "math"

	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

type LightType uint8

const (
	LightDirectional LightType = iota
	LightSpot
	LightOmni
)

// OmniFaceCount is the number of cube faces an omni shadow renders.
const OmniFaceCount = 6

// Light is a scene light with an optionally owned shadow map. Mutators that
// move the light or change its reach mark the shadow stale; callers must
// call MarkShadowDirty themselves when shadow-casting geometry moves, since
// the manager has no view of scene changes.
type Light struct {
	ID   uint32
	Type LightType

	Enabled  bool
	Color    metadata.Color
	Energy   float32
	Specular float32

	// Shadow shaping, read by the deferred and forward light loops.
	ShadowBias     float32
	ShadowSoftness float32

	position    math.Vec3
	direction   math.Vec3
	lightRange  float32
	attenuation float32
	innerCutoff float32
	outerCutoff float32

	shadow        bool
	shadowNear    float32
	shadowMapSize uint32
	shadowMap     gpu.TextureHandle
	shadowFB      gpu.FramebufferHandle
	shadowDirty   bool

	faceCount int
	viewProj  [OmniFaceCount]math.Mat4
	frustums  [OmniFaceCount]math.Frustum

	visible    bool
	screenRect math.Rect
}

func (l *Light) Position() math.Vec3  { return l.position }
func (l *Light) Direction() math.Vec3 { return l.direction }
func (l *Light) Range() float32       { return l.lightRange }
func (l *Light) Attenuation() float32 { return l.attenuation }
func (l *Light) InnerCutoff() float32 { return l.innerCutoff }
func (l *Light) OuterCutoff() float32 { return l.outerCutoff }

func (l *Light) SetPosition(p math.Vec3) {
	l.position = p
	l.shadowDirty = true
}

func (l *Light) SetDirection(d math.Vec3) {
	l.direction = d.Normalized()
	l.shadowDirty = true
}

func (l *Light) SetRange(r float32) {
	l.lightRange = r
	l.shadowDirty = true
}

func (l *Light) SetAttenuation(a float32) {
	l.attenuation = a
}

// SetConeAngles sets the spot cone in radians, inner <= outer.
func (l *Light) SetConeAngles(inner, outer float32) {
	l.innerCutoff = inner
	l.outerCutoff = outer
	l.shadowDirty = true
}

// HasShadow reports whether a shadow map is allocated for the light.
func (l *Light) HasShadow() bool { return l.shadow }

// MarkShadowDirty forces a shadow re-render on the next frame. Call it when
// shadow-casting geometry inside the light's reach has moved.
func (l *Light) MarkShadowDirty() { l.shadowDirty = true }

// Visible reports the flag from the manager's last UpdateAndCull.
func (l *Light) Visible() bool { return l.visible }

// ScreenRect is the screen-space bounding rectangle of the light volume
// from the last UpdateAndCull. Directional lights cover the full viewport.
func (l *Light) ScreenRect() math.Rect { return l.screenRect }

// FaceCount is 6 for omni lights, 1 otherwise.
func (l *Light) FaceCount() int { return l.faceCount }

// ViewProj returns the cached shadow view-projection for a face.
func (l *Light) ViewProj(face int) math.Mat4 { return l.viewProj[face] }

// Frustum returns the cached culling frustum for a face.
func (l *Light) Frustum(face int) math.Frustum { return l.frustums[face] }

// ShadowMapSize is the shadow map resolution in pixels per side.
func (l *Light) ShadowMapSize() uint32 { return l.shadowMapSize }

// ShadowMap returns the depth texture (cube for omni, 2D otherwise).
func (l *Light) ShadowMap() gpu.TextureHandle { return l.shadowMap }

// ShadowFramebuffer returns the owned shadow framebuffer.
func (l *Light) ShadowFramebuffer() gpu.FramebufferHandle { return l.shadowFB }

// ShadowTexelSize is 1/resolution, fed to the PCF filter.
func (l *Light) ShadowTexelSize() float32 {
	if l.shadowMapSize == 0 {
		return 0
	}
	return 1.0 / float32(l.shadowMapSize)
}

// cube face orientations in the canonical +X,-X,+Y,-Y,+Z,-Z order.
var omniFaceDirs = [OmniFaceCount]math.Vec3{
	{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
}

var omniFaceUps = [OmniFaceCount]math.Vec3{
	{Y: -1}, {Y: -1}, {Z: 1}, {Z: -1}, {Y: -1}, {Y: -1},
}

// updateMatrices refreshes the cached view-projections and frustums from
// the light's current transform.
func (l *Light) updateMatrices() {
	switch l.Type {
	case LightOmni:
		l.faceCount = OmniFaceCount
		proj := math.NewMat4Perspective(float32(gomath.Pi/2), 1, l.shadowNear, l.lightRange)
		for i := 0; i < OmniFaceCount; i++ {
			view := math.NewMat4LookAt(l.position, l.position.Add(omniFaceDirs[i]), omniFaceUps[i])
			l.viewProj[i] = proj.Mul(view)
			l.frustums[i] = math.NewFrustumFromMatrix(l.viewProj[i])
		}
	case LightSpot:
		l.faceCount = 1
		fov := math.Clamp(2*l.outerCutoff, 0.1, float32(gomath.Pi)-0.01)
		proj := math.NewMat4Perspective(fov, 1, l.shadowNear, l.lightRange)
		view := math.NewMat4LookAt(l.position, l.position.Add(l.direction), shadowUp(l.direction))
		l.viewProj[0] = proj.Mul(view)
		l.frustums[0] = math.NewFrustumFromMatrix(l.viewProj[0])
	default:
		l.faceCount = 1
		half := l.lightRange
		proj := math.NewMat4Orthographic(-half, half, -half, half, l.shadowNear, 2*half)
		view := math.NewMat4LookAt(l.position, l.position.Add(l.direction), shadowUp(l.direction))
		l.viewProj[0] = proj.Mul(view)
		l.frustums[0] = math.NewFrustumFromMatrix(l.viewProj[0])
	}
}

// shadowUp picks an up vector not collinear with the light direction.
func shadowUp(dir math.Vec3) math.Vec3 {
	up := math.NewVec3(0, 1, 0)
	if dir.Y > 0.99 || dir.Y < -0.99 {
		up = math.NewVec3(0, 0, 1)
	}
	return up
}

// bounds returns the world-space box of the light volume. ok is false for
// directional lights, which are unbounded.
func (l *Light) bounds() (math.AABB, bool) {
	if l.Type == LightDirectional {
		return math.AABB{}, false
	}
	r := l.lightRange
	return math.AABB{
		Min: l.position.Sub(math.NewVec3(r, r, r)),
		Max: l.position.Add(math.NewVec3(r, r, r)),
	}, true
}
