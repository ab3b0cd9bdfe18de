package draw

import "github.com/spaghettifunk/prisma/engine/math"

// ComputeVisible recomputes every group's visibility flag against the given
// frustum. Bucket membership and ordering are untouched, so it can run
// several times per frame (once for the view, once per shadow face) and
// always reproduces the same result for the same frustum. Groups without
// usable bounds are always visible.
func (r *Registry) ComputeVisible(frustum math.Frustum) {
	for _, g := range r.groups {
		box, ok := g.WorldAABB()
		if !ok {
			g.visible = true
			continue
		}
		g.visible = frustum.ContainsAABB(box)
	}
}

// SetAllVisible marks every group visible, used when culling is disabled.
func (r *Registry) SetAllVisible() {
	for _, g := range r.groups {
		g.visible = true
	}
}

// Visible reports the group's flag from the last ComputeVisible run.
func (g *Group) Visible() bool {
	return g.visible
}
