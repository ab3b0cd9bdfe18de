package core

import (
	"fmt"

	"github.com/google/uuid"
)

// DebugName builds a unique name for a GPU resource (render target texture,
// shadow map, shader program). Names only matter for logging and graphics
// debugger captures, so uniqueness beats readability.
func DebugName(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}
