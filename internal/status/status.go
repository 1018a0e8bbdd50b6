package status

import (
	"errors"
	"fmt"
	"strings"
)

// DocURL points at the codec engine's return code reference
const DocURL = "https://docs.nvidia.com/cuda/nvjpeg/index.html#nvjpeg-api-return-codes"

// RuntimeDocURL points at the compute runtime's error reference
const RuntimeDocURL = "https://docs.nvidia.com/cuda/cuda-runtime-api/group__CUDART__TYPES.html"

// Code is a native status returned by the codec engine
type Code int

// Codec engine status codes. Values match nvjpegStatus_t.
const (
	Success                    Code = 0
	NotInitialized             Code = 1
	InvalidParameter           Code = 2
	BadJPEG                    Code = 3
	JPEGNotSupported           Code = 4
	AllocatorFailure           Code = 5
	ExecutionFailed            Code = 6
	ArchMismatch               Code = 7
	InternalError              Code = 8
	ImplementationNotSupported Code = 9
	IncompleteBitstream        Code = 10
)

var codeNames = map[Code]string{
	Success:                    "NVJPEG_STATUS_SUCCESS",
	NotInitialized:             "NVJPEG_STATUS_NOT_INITIALIZED",
	InvalidParameter:           "NVJPEG_STATUS_INVALID_PARAMETER",
	BadJPEG:                    "NVJPEG_STATUS_BAD_JPEG",
	JPEGNotSupported:           "NVJPEG_STATUS_JPEG_NOT_SUPPORTED",
	AllocatorFailure:           "NVJPEG_STATUS_ALLOCATOR_FAILURE",
	ExecutionFailed:            "NVJPEG_STATUS_EXECUTION_FAILED",
	ArchMismatch:               "NVJPEG_STATUS_ARCH_MISMATCH",
	InternalError:              "NVJPEG_STATUS_INTERNAL_ERROR",
	ImplementationNotSupported: "NVJPEG_STATUS_IMPLEMENTATION_NOT_SUPPORTED",
	IncompleteBitstream:        "NVJPEG_STATUS_INCOMPLETE_BITSTREAM",
}

var codeMessages = map[Code]string{
	Success:                    "success",
	NotInitialized:             "library handle or state was not initialized",
	InvalidParameter:           "wrong parameter was passed",
	BadJPEG:                    "cannot parse the JPEG stream",
	JPEGNotSupported:           "JPEG stream is not supported",
	AllocatorFailure:           "memory allocator failed",
	ExecutionFailed:            "error during execution on the device",
	ArchMismatch:               "device capabilities are not enough for the requested operation",
	InternalError:              "internal library error",
	ImplementationNotSupported: "requested feature is not implemented by this backend",
	IncompleteBitstream:        "bitstream input data incomplete",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("NVJPEG_STATUS_UNKNOWN(%d)", int(c))
}

// Message returns a human-readable description of the status
func (c Code) Message() string {
	if msg, ok := codeMessages[c]; ok {
		return msg
	}
	return "unrecognized status code"
}

// OK reports whether the code is Success
func (c Code) OK() bool { return c == Success }

// Caller-facing error kinds. Use errors.Is against these.
var (
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrEngineUnavailable      = errors.New("codec engine unavailable")
	ErrDeviceAllocationFailed = errors.New("device allocation failed")
	ErrDeviceTransferFailed   = errors.New("device transfer failed")
	ErrCodecOperationFailed   = errors.New("codec operation failed")
)

// Backend identifies which native vocabulary a status code came from
type Backend string

const (
	BackendNone    Backend = ""
	BackendEngine  Backend = "engine"
	BackendRuntime Backend = "runtime"
)

// Error is the single caller-visible error value produced by a failed call
type Error struct {
	Kind    error
	Stage   string
	Backend Backend
	Code    int
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder

	if c := CurrentCategory(); c != nil {
		b.WriteString(c.Name())
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())

	if e.Stage != "" {
		b.WriteString(" at stage ")
		b.WriteString(e.Stage)
	}

	switch e.Backend {
	case BackendEngine:
		code := Code(e.Code)
		fmt.Fprintf(&b, ": status %d (%s: %s)", e.Code, code, code.Message())
	case BackendRuntime:
		fmt.Fprintf(&b, ": runtime status %d", e.Code)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	switch e.Backend {
	case BackendEngine:
		b.WriteString("; see ")
		b.WriteString(DocURL)
	case BackendRuntime:
		b.WriteString("; see ")
		b.WriteString(RuntimeDocURL)
	}

	return b.String()
}

// Is matches the error against its kind sentinel
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Coder is implemented by backend errors that carry a native numeric status
type Coder interface {
	StatusCode() int
}

// InvalidArgument builds an error for a caller-supplied value that failed validation
func InvalidArgument(format string, args ...any) *Error {
	return &Error{
		Kind:   ErrInvalidArgument,
		Detail: fmt.Sprintf(format, args...),
	}
}

// EngineUnavailable translates a failed engine construction
func EngineUnavailable(stage string, code Code) *Error {
	return &Error{
		Kind:    ErrEngineUnavailable,
		Stage:   stage,
		Backend: BackendEngine,
		Code:    int(code),
	}
}

// BackendUnavailable wraps a compute backend that could not be initialized
func BackendUnavailable(stage string, err error) *Error {
	return fromRuntime(ErrEngineUnavailable, stage, err)
}

// Engine translates a non-success engine status at the given stage.
// It returns nil for Success.
func Engine(stage string, code Code) error {
	if code.OK() {
		return nil
	}
	return &Error{
		Kind:    ErrCodecOperationFailed,
		Stage:   stage,
		Backend: BackendEngine,
		Code:    int(code),
	}
}

// Allocation wraps a compute backend allocation failure
func Allocation(stage string, size int64, err error) *Error {
	e := fromRuntime(ErrDeviceAllocationFailed, stage, err)
	e.Detail = fmt.Sprintf("requested %d bytes", size)
	return e
}

// Transfer wraps a host/device copy failure
func Transfer(stage string, err error) *Error {
	return fromRuntime(ErrDeviceTransferFailed, stage, err)
}

// Runtime wraps any other compute backend failure inside a codec operation
func Runtime(stage string, err error) *Error {
	return fromRuntime(ErrCodecOperationFailed, stage, err)
}

func fromRuntime(kind error, stage string, err error) *Error {
	e := &Error{
		Kind:  kind,
		Stage: stage,
		Cause: err,
	}
	var c Coder
	if errors.As(err, &c) {
		e.Backend = BackendRuntime
		e.Code = c.StatusCode()
	}
	return e
}

// StageOf returns the failing stage recorded in err, if any
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}
	return ""
}

// CodeOf returns the native status recorded in err, or -1
func CodeOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Backend != BackendNone {
		return e.Code
	}
	return -1
}
