package draw

import (
	"sort"

	"github.com/spaghettifunk/prisma/engine/math"
)

// SortOrder selects the direction of a distance sort.
type SortOrder uint8

const (
	// SortFrontToBack favors early depth rejection for opaque draws.
	SortFrontToBack SortOrder = iota
	// SortBackToFront is required for correct transparency blending.
	SortBackToFront
)

// sortKey is the squared distance from the viewpoint to the group origin,
// or to the center of the instanced combined bounds when present.
func sortKey(c *Call, viewpoint math.Vec3) float32 {
	g := c.Group
	if g.Instanced() {
		if box, ok := g.WorldAABB(); ok {
			return viewpoint.DistanceSquared(box.Center())
		}
	}
	return viewpoint.DistanceSquared(g.Transform.Translation())
}

// SortBucket orders both sub-lists of a bucket by distance to the viewpoint.
// The sort is stable: equal distances keep submission order, so repeated
// sorts with the same viewpoint are idempotent.
func SortBucket(b *Bucket, viewpoint math.Vec3, order SortOrder) {
	sortCalls(b.Plain, viewpoint, order)
	sortCalls(b.Instanced, viewpoint, order)
}

func sortCalls(calls []*Call, viewpoint math.Vec3, order SortOrder) {
	sort.SliceStable(calls, func(i, j int) bool {
		di := sortKey(calls[i], viewpoint)
		dj := sortKey(calls[j], viewpoint)
		if di == dj {
			return calls[i].order < calls[j].order
		}
		if order == SortBackToFront {
			return di > dj
		}
		return di < dj
	})
}
