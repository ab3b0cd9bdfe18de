package metadata

import "github.com/spaghettifunk/prisma/engine/renderer/gpu"

// Texture is a loaded material texture. The zero Handle means "not set";
// the binder substitutes the technique's fallback texture.
type Texture struct {
	Name   string
	Handle gpu.TextureHandle
	Width  uint32
	Height uint32
	Kind   gpu.TextureKind
}

func (t *Texture) IsValid() bool {
	return t != nil && t.Handle != 0
}
