// Package codectest provides a fault-injecting codec.Engine for tests.
package codectest

import (
	"sync"

	"github.com/xupit3r/gpujpeg/internal/codec"
	"github.com/xupit3r/gpujpeg/internal/status"
)

// Destroy stages, keyed the same way Session names them in errors
const (
	StageDestroyHandle        = "destroy handle"
	StageDestroyEncoderState  = "destroy encoder state"
	StageDestroyEncoderParams = "destroy encoder params"
	StageDestroyDecoderState  = "destroy decoder state"
)

// Engine wraps a real engine. Any stage listed in its faults returns the
// configured status instead of reaching the wrapped engine. It counts the
// handle and sub-objects that are alive so tests can check teardown.
type Engine struct {
	base   codec.Engine
	faults map[string]status.Code

	mu      sync.Mutex
	live    int
	created int
	order   []string
}

// New wraps base with no faults configured
func New(base codec.Engine) *Engine {
	return &Engine{base: base, faults: make(map[string]status.Code)}
}

// Fail makes stage return code
func (e *Engine) Fail(stage string, code status.Code) *Engine {
	e.faults[stage] = code
	return e
}

// Live returns how many handles and sub-objects are not yet destroyed
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

// Created returns how many handles and sub-objects were created in total
func (e *Engine) Created() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.created
}

// Destroyed returns the names of destroyed objects in destruction order
func (e *Engine) Destroyed() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

func (e *Engine) fault(stage string) (status.Code, bool) {
	code, ok := e.faults[stage]
	return code, ok
}

func (e *Engine) noteCreated() {
	e.mu.Lock()
	e.live++
	e.created++
	e.mu.Unlock()
}

func (e *Engine) destroyed(name string) {
	e.mu.Lock()
	e.live--
	e.order = append(e.order, name)
	e.mu.Unlock()
}

func (e *Engine) Name() string { return e.base.Name() }

func (e *Engine) Open() (codec.Handle, status.Code) {
	if code, ok := e.fault(codec.StageCreateHandle); ok {
		return nil, code
	}
	h, code := e.base.Open()
	if !code.OK() {
		return nil, code
	}
	e.noteCreated()
	return &handle{Handle: h, engine: e}, status.Success
}

type handle struct {
	codec.Handle
	engine *Engine
}

type encoderState struct {
	codec.EncoderState
	engine *Engine
}

type encoderParams struct {
	codec.EncoderParams
	engine *Engine
}

type decoderState struct {
	codec.DecoderState
	engine *Engine
}

func (h *handle) CreateEncoderState() (codec.EncoderState, status.Code) {
	if code, ok := h.engine.fault(codec.StageEncoderStateCreate); ok {
		return nil, code
	}
	st, code := h.Handle.CreateEncoderState()
	if !code.OK() {
		return nil, code
	}
	h.engine.noteCreated()
	return &encoderState{EncoderState: st, engine: h.engine}, status.Success
}

func (h *handle) CreateEncoderParams() (codec.EncoderParams, status.Code) {
	if code, ok := h.engine.fault(codec.StageEncoderParamsCreate); ok {
		return nil, code
	}
	p, code := h.Handle.CreateEncoderParams()
	if !code.OK() {
		return nil, code
	}
	h.engine.noteCreated()
	return &encoderParams{EncoderParams: p, engine: h.engine}, status.Success
}

func (h *handle) CreateDecoderState() (codec.DecoderState, status.Code) {
	if code, ok := h.engine.fault(codec.StageDecoderStateCreate); ok {
		return nil, code
	}
	st, code := h.Handle.CreateDecoderState()
	if !code.OK() {
		return nil, code
	}
	h.engine.noteCreated()
	return &decoderState{DecoderState: st, engine: h.engine}, status.Success
}

func (h *handle) ImageInfo(data []byte) (codec.ImageInfo, status.Code) {
	if code, ok := h.engine.fault(codec.StageImageInfo); ok {
		return codec.ImageInfo{}, code
	}
	return h.Handle.ImageInfo(data)
}

func (h *handle) Encode(state codec.EncoderState, params codec.EncoderParams, src codec.Image) status.Code {
	if code, ok := h.engine.fault(codec.StageEncode); ok {
		return code
	}
	return h.Handle.Encode(unwrapEncoderState(state), unwrapEncoderParams(params), src)
}

func (h *handle) RetrieveBitstream(state codec.EncoderState, dst []byte) (int, status.Code) {
	stage := codec.StageRetrieveBitstream
	if dst == nil {
		stage = codec.StageBitstreamLength
	}
	if code, ok := h.engine.fault(stage); ok {
		return 0, code
	}
	return h.Handle.RetrieveBitstream(unwrapEncoderState(state), dst)
}

func (h *handle) Decode(state codec.DecoderState, data []byte, dst codec.Image) status.Code {
	if code, ok := h.engine.fault(codec.StageDecode); ok {
		return code
	}
	if st, ok := state.(*decoderState); ok {
		state = st.DecoderState
	}
	return h.Handle.Decode(state, data, dst)
}

// Destroy always releases the wrapped object; an injected fault only changes
// the reported status.
func (h *handle) Destroy() status.Code {
	code := h.Handle.Destroy()
	h.engine.destroyed("handle")
	if fault, ok := h.engine.fault(StageDestroyHandle); ok {
		return fault
	}
	return code
}

func (s *encoderState) Destroy() status.Code {
	code := s.EncoderState.Destroy()
	s.engine.destroyed("encoder state")
	if fault, ok := s.engine.fault(StageDestroyEncoderState); ok {
		return fault
	}
	return code
}

func (p *encoderParams) SetQuality(quality int) status.Code {
	if code, ok := p.engine.fault(codec.StageSetQuality); ok {
		return code
	}
	return p.EncoderParams.SetQuality(quality)
}

func (p *encoderParams) SetSamplingFactors(s codec.Subsampling) status.Code {
	if code, ok := p.engine.fault(codec.StageSetSampling); ok {
		return code
	}
	return p.EncoderParams.SetSamplingFactors(s)
}

func (p *encoderParams) Destroy() status.Code {
	code := p.EncoderParams.Destroy()
	p.engine.destroyed("encoder params")
	if fault, ok := p.engine.fault(StageDestroyEncoderParams); ok {
		return fault
	}
	return code
}

func (s *decoderState) Destroy() status.Code {
	code := s.DecoderState.Destroy()
	s.engine.destroyed("decoder state")
	if fault, ok := s.engine.fault(StageDestroyDecoderState); ok {
		return fault
	}
	return code
}

func unwrapEncoderState(s codec.EncoderState) codec.EncoderState {
	if w, ok := s.(*encoderState); ok {
		return w.EncoderState
	}
	return s
}

func unwrapEncoderParams(p codec.EncoderParams) codec.EncoderParams {
	if w, ok := p.(*encoderParams); ok {
		return w.EncoderParams
	}
	return p
}
