//go:build !sdl

package render

import "errors"

// PointRenderer is unavailable without the sdl build tag.
type PointRenderer struct{ Null }

func NewPointRenderer(Options) (*PointRenderer, error) {
	return nil, errors.New("render: SDL backend not enabled; rebuild with -tags sdl")
}

// SupportsSDL reports whether this build carries the SDL backend.
func SupportsSDL() bool { return false }
