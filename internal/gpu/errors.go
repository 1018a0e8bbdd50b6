package gpu

import (
	"errors"
	"fmt"
)

// ErrBufferFreed is returned when a buffer is used or freed after release
var ErrBufferFreed = errors.New("buffer already freed")

// RuntimeError carries a native compute runtime status (cudaError_t)
type RuntimeError struct {
	Op   string
	Code int
	Msg  string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s (cuda error %d)", e.Op, e.Msg, e.Code)
}

// StatusCode exposes the native runtime status for translation
func (e *RuntimeError) StatusCode() int { return e.Code }
