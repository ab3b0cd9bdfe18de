package passes

import (
	"github.com/spaghettifunk/prisma/engine/renderer/draw"
	"github.com/spaghettifunk/prisma/engine/renderer/gpu"
	"github.com/spaghettifunk/prisma/engine/renderer/lights"
	"github.com/spaghettifunk/prisma/engine/renderer/metadata"
	"github.com/spaghettifunk/prisma/engine/renderer/shader"
	"github.com/spaghettifunk/prisma/engine/renderer/targets"
)

// MaxForwardLights caps the per-call light array of the forward path.
// Excess nearby lights are silently skipped.
const MaxForwardLights = 4

// Flags are the per-renderer feature switches read by the orchestrator.
type Flags struct {
	FrustumCulling  bool
	SortOpaque      bool
	SortTransparent bool
	FXAA            bool
	AspectKeepBlit  bool
	LinearBlit      bool
	// ShadowFaceCulling recomputes visibility per shadow face instead of
	// reusing the view-frustum result.
	ShadowFaceCulling bool
}

// Context carries everything one frame's pass sequence needs. It is rebuilt
// per frame around persistent managers and owned by the frame thread.
type Context struct {
	Backend   gpu.Backend
	Targets   *targets.Manager
	Lights    *lights.Manager
	Registry  *draw.Registry
	Programs  *Programs
	Fallbacks shader.Fallbacks

	View  *metadata.ViewState
	Env   *metadata.Environment
	Flags Flags

	Width  uint32
	Height uint32

	// Screen-space pass results, zero when the effect is disabled or
	// produced nothing this frame.
	ssaoResult gpu.TextureHandle
	ssilResult gpu.TextureHandle
	ssrResult  gpu.TextureHandle
}
