package metadata

import (
	gomath "math"

	"github.com/spaghettifunk/prisma/engine/math"
)

// Camera is the application-facing view description captured by BeginFrame.
// FovY is in radians.
type Camera struct {
	Position math.Vec3
	Target   math.Vec3
	Up       math.Vec3
	FovY     float32
	Near     float32
	Far      float32
}

func NewCamera(position, target math.Vec3) Camera {
	return Camera{
		Position: position,
		Target:   target,
		Up:       math.NewVec3(0, 1, 0),
		FovY:     float32(gomath.Pi / 4),
		Near:     0.1,
		Far:      1000,
	}
}

// ViewState is the per-frame snapshot of the camera derived once in
// BeginFrame and read by every pass. Submissions after BeginFrame cannot
// change it.
type ViewState struct {
	Position math.Vec3

	View     math.Mat4
	Proj     math.Mat4
	ViewProj math.Mat4
	InvView  math.Mat4
	InvProj  math.Mat4

	Frustum math.Frustum

	Near   float32
	Far    float32
	Aspect float32
}

// NewViewState derives the matrices and culling frustum for one frame.
func NewViewState(cam Camera, width, height uint32) ViewState {
	aspect := float32(1)
	if height != 0 {
		aspect = float32(width) / float32(height)
	}

	view := math.NewMat4LookAt(cam.Position, cam.Target, cam.Up)
	proj := math.NewMat4Perspective(cam.FovY, aspect, cam.Near, cam.Far)
	viewProj := proj.Mul(view)

	return ViewState{
		Position: cam.Position,
		View:     view,
		Proj:     proj,
		ViewProj: viewProj,
		InvView:  view.Inverse(),
		InvProj:  proj.Inverse(),
		Frustum:  math.NewFrustumFromMatrix(viewProj),
		Near:     cam.Near,
		Far:      cam.Far,
		Aspect:   aspect,
	}
}
