package passes

import (
	"time"

	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/renderer/draw"
)

// Execute runs the fixed per-frame pass sequence. All passes run on the
// calling goroutine and to completion; pass-level emptiness (no lights, no
// geometry) degrades individual passes to no-ops, never to errors.
func Execute(ctx *Context) error {
	if ctx.Width == 0 || ctx.Height == 0 {
		return core.ErrTargetInvalid
	}

	if ctx.Flags.FrustumCulling {
		ctx.Registry.ComputeVisible(ctx.View.Frustum)
	} else {
		ctx.Registry.SetAllVisible()
	}
	ctx.Lights.UpdateAndCull(ctx.View, ctx.Width, ctx.Height)

	if ctx.Flags.SortOpaque {
		draw.SortBucket(ctx.Registry.Bucket(draw.TechniqueDeferred), ctx.View.Position, draw.SortFrontToBack)
		draw.SortBucket(ctx.Registry.Bucket(draw.TechniquePrepass), ctx.View.Position, draw.SortFrontToBack)
	}
	if ctx.Flags.SortTransparent {
		draw.SortBucket(ctx.Registry.Bucket(draw.TechniqueForward), ctx.View.Position, draw.SortBackToFront)
	}

	shadowMutatedVisibility := false
	timed("shadow", func() { shadowMutatedVisibility = ctx.ShadowPass() })
	if shadowMutatedVisibility {
		ctx.Registry.ComputeVisible(ctx.View.Frustum)
	}

	timed("geometry", ctx.GeometryPass)
	timed("decal", ctx.DecalPass)

	timed("ssao", ctx.SSAOPass)
	timed("ssil", ctx.SSILPass)
	timed("ssr", ctx.SSRPass)

	timed("ambient", ctx.AmbientPass)
	timed("light", ctx.LightPass)
	timed("compose", ctx.ComposePass)
	timed("background", ctx.BackgroundPass)

	timed("forward", ctx.PrepassForwardPass)

	timed("fog", ctx.FogPass)
	timed("dof", ctx.DofPass)
	timed("bloom", ctx.BloomPass)
	timed("output", ctx.OutputPass)
	timed("fxaa", ctx.FXAAPass)

	ctx.FinalBlit()
	ctx.Backend.ResetState()
	return nil
}

func timed(name string, pass func()) {
	start := time.Now()
	pass()
	core.MetricsRecordPass(name, float64(time.Since(start).Nanoseconds())/1e6)
}
