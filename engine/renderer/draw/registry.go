package draw

import (
	"github.com/spaghettifunk/prisma/engine/math"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
)

// Technique is the rendering route a call is classified into. Every call
// lands in exactly one technique bucket, except prepass materials which are
// mirrored into the forward bucket for the color pass.
type Technique uint8

const (
	TechniqueDeferred Technique = iota
	TechniqueForward
	TechniquePrepass
	TechniqueDecal

	TechniqueCount
)

// InstanceDescriptor attaches per-instance data to a group. AABB is the
// caller-supplied combined local-space bounds of all instances; when zero,
// the group is never frustum-culled and per-instance culling is the
// caller's responsibility.
type InstanceDescriptor struct {
	Transforms []math.Mat4
	Colors     []metadata.Color
	Count      int
	AABB       math.AABB
}

// Group is one submission sharing a world transform. Groups live for a
// single frame; Reset drops them all.
type Group struct {
	Transform math.Mat4
	AABB      math.AABB
	Skeleton  *metadata.Skeleton
	Instances *InstanceDescriptor

	visible bool
}

// Instanced reports whether the group carries per-instance data.
func (g *Group) Instanced() bool {
	return g.Instances != nil
}

// WorldAABB returns the culling bounds in world space, preferring the
// instanced combined box when present. ok is false when no usable bounds
// exist, which callers must treat as "always visible".
func (g *Group) WorldAABB() (math.AABB, bool) {
	box := g.AABB
	if g.Instances != nil {
		box = g.Instances.AABB
	}
	if !box.IsValid() {
		return math.AABB{}, false
	}
	return box.Transform(g.Transform), true
}

// Call is one mesh+material pairing inside a group. The material is
// snapshotted at submission time.
type Call struct {
	Group    *Group
	Mesh     *metadata.Mesh
	Material metadata.Material

	// order is the submission index, used as the sort tiebreaker.
	order int
}

// GroupHandle indexes a group within the current frame. The zero value of
// InvalidGroup marks a dropped submission; pushing calls against it is a
// silent no-op.
type GroupHandle int

const InvalidGroup GroupHandle = -1

// Bucket holds the calls of one technique, split by instancing.
type Bucket struct {
	Plain     []*Call
	Instanced []*Call
}

func (b *Bucket) Empty() bool {
	return len(b.Plain) == 0 && len(b.Instanced) == 0
}

func (b *Bucket) reset() {
	b.Plain = b.Plain[:0]
	b.Instanced = b.Instanced[:0]
}

// Registry collects the frame's draw calls into technique buckets. It is
// append-only between Reset calls and not safe for concurrent use.
type Registry struct {
	groups    []*Group
	buckets   [TechniqueCount]Bucket
	nextOrder int
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Reset clears all groups and buckets for a new frame. Slices are reused.
func (r *Registry) Reset() {
	r.groups = r.groups[:0]
	for i := range r.buckets {
		r.buckets[i].reset()
	}
	r.nextOrder = 0
}

// Bucket returns the live bucket for a technique.
func (r *Registry) Bucket(t Technique) *Bucket {
	return &r.buckets[t]
}

// Groups returns the frame's groups in submission order.
func (r *Registry) Groups() []*Group {
	return r.groups
}

// PushGroup registers a group for this frame. A group with a malformed
// instancing descriptor (no transforms or a non-positive count) is dropped
// and InvalidGroup returned.
func (r *Registry) PushGroup(transform math.Mat4, aabb math.AABB, skeleton *metadata.Skeleton, instances *InstanceDescriptor) GroupHandle {
	if instances != nil {
		if instances.Count <= 0 || len(instances.Transforms) == 0 {
			return InvalidGroup
		}
		if instances.Count > len(instances.Transforms) {
			instances.Count = len(instances.Transforms)
		}
	}
	g := &Group{
		Transform: transform,
		AABB:      aabb,
		Skeleton:  skeleton,
		Instances: instances,
		visible:   true,
	}
	r.groups = append(r.groups, g)
	return GroupHandle(len(r.groups) - 1)
}

// PushDrawCall classifies one mesh+material pairing into its technique
// bucket. Decal submissions always take the decal route; otherwise alpha
// transparency or a non-mix blend forces the forward route, a prepass
// material is mirrored into both the prepass and forward buckets, and
// everything else is deferred. Malformed input is silently dropped.
func (r *Registry) PushDrawCall(handle GroupHandle, mesh *metadata.Mesh, material metadata.Material, isDecal bool) {
	if handle == InvalidGroup || int(handle) >= len(r.groups) {
		return
	}
	if mesh == nil || mesh.VertexBuffer == 0 || mesh.IndexCount == 0 {
		return
	}
	group := r.groups[handle]
	call := &Call{
		Group:    group,
		Mesh:     mesh,
		Material: material,
		order:    r.nextOrder,
	}
	r.nextOrder++

	switch {
	case isDecal:
		r.append(TechniqueDecal, call)
	case material.Transparency == metadata.TransparencyAlpha || material.Blend != metadata.BlendMix:
		r.append(TechniqueForward, call)
	case material.Transparency == metadata.TransparencyPrepass:
		r.append(TechniquePrepass, call)
		r.append(TechniqueForward, call)
	default:
		r.append(TechniqueDeferred, call)
	}
}

func (r *Registry) append(t Technique, call *Call) {
	b := &r.buckets[t]
	if call.Group.Instanced() {
		b.Instanced = append(b.Instanced, call)
	} else {
		b.Plain = append(b.Plain, call)
	}
}
