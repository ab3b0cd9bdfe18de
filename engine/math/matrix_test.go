package math

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertMat4InDelta(t *testing.T, want, got Mat4, delta float64) {
	t.Helper()
	for i := 0; i < 16; i++ {
		assert.InDelta(t, want.Data[i], got.Data[i], delta, "element %d", i)
	}
}

func TestMat4InverseRoundTrip(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, -2, 3)).
		Mul(NewMat4EulerY(0.7)).
		Mul(NewMat4Scale(NewVec3(2, 3, 0.5)))

	assertMat4InDelta(t, NewMat4Identity(), m.Mul(m.Inverse()), 1e-5)
	assertMat4InDelta(t, NewMat4Identity(), m.Inverse().Mul(m), 1e-5)
}

func TestMat4InverseSingularReturnsIdentity(t *testing.T) {
	assertMat4InDelta(t, NewMat4Identity(), Mat4{}.Inverse(), 0)
}

func TestNewMat4Transposed(t *testing.T) {
	var m Mat4
	for i := range m.Data {
		m.Data[i] = float32(i)
	}

	tr := NewMat4Transposed(m)
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			assert.Equal(t, m.Data[col*4+row], tr.Data[row*4+col])
		}
	}
	assertMat4InDelta(t, m, NewMat4Transposed(tr), 0)
}

func TestNormalMatrixFromInverseTranspose(t *testing.T) {
	// For a pure non-uniform scale the normal matrix is the reciprocal
	// diagonal.
	m := NewMat4Scale(NewVec3(2, 4, 8))
	n := NewMat4Transposed(m.Inverse())

	assert.InDelta(t, 0.5, float64(n.Data[0]), 1e-6)
	assert.InDelta(t, 0.25, float64(n.Data[5]), 1e-6)
	assert.InDelta(t, 0.125, float64(n.Data[10]), 1e-6)

	// A normal on a face of the scaled box stays perpendicular after the
	// normal-matrix transform.
	rot := NewMat4EulerY(0.9).Mul(m)
	nrm := NewMat4Transposed(rot.Inverse())
	surface := rot.MulVec4(NewVec4(0, 0, 1, 0)) // tangent direction on the +X face
	normal := nrm.MulVec4(NewVec4(1, 0, 0, 0))
	dot := surface.X*normal.X + surface.Y*normal.Y + surface.Z*normal.Z
	assert.InDelta(t, 0, float64(dot), 1e-5)
}

func TestMat4LookAtMapsTargetToNegativeZ(t *testing.T) {
	view := NewMat4LookAt(NewVec3(0, 0, 10), NewVec3(0, 0, 0), NewVec3(0, 1, 0))
	p := view.TransformPoint(NewVec3(0, 0, 0))
	assert.InDelta(t, 0, float64(p.X), 1e-6)
	assert.InDelta(t, 0, float64(p.Y), 1e-6)
	assert.InDelta(t, -10, float64(p.Z), 1e-6)
}

func TestMat4ProjectBehindCamera(t *testing.T) {
	proj := NewMat4Perspective(float32(gomath.Pi/2), 1, 0.1, 100)
	_, ok := proj.Project(NewVec3(0, 0, 5))
	assert.False(t, ok)

	ndc, ok := proj.Project(NewVec3(0, 0, -10))
	assert.True(t, ok)
	assert.InDelta(t, 0, float64(ndc.X), 1e-6)
	assert.InDelta(t, 0, float64(ndc.Y), 1e-6)
}
