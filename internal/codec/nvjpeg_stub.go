//go:build !linux || !cgo || !cuda

package codec

import "fmt"

// NewNVJPEGEngine is not available in builds without CUDA support
func NewNVJPEGEngine() (Engine, error) {
	return nil, fmt.Errorf("nvJPEG support requires Linux with CGO enabled (build with: go build -tags cuda)")
}
