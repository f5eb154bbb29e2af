package renderer

import "errors"

var (
	ErrNoViews      = errors.New("renderer: camera has no views")
	ErrViewMismatch = errors.New("renderer: pixel batch does not match camera views")
	ErrNoField      = errors.New("renderer: volume has no radiance field")
	ErrCondDims     = errors.New("renderer: unsupported view-conditioning dimensionality")
)
