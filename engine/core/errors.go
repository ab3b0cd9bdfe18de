package core

import (
	"errors"
)

var (
	// ErrSwapchainBooting is returned while the swapchain is being resized or
	// recreated; the caller should retry the frame.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	// ErrTargetInvalid is returned when a render target is missing or has a
	// zero-sized backing texture. This is fatal for the frame: the renderer
	// must be recreated at the new resolution before the next frame begins.
	ErrTargetInvalid = errors.New("render target missing or zero-sized")
)
