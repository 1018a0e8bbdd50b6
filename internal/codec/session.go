package codec

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/xupit3r/gpujpeg/internal/status"
)

// Stage names reported in errors and logs
const (
	StageCreateHandle        = "create_handle"
	StageEncoderStateCreate  = "encoder_state_create"
	StageEncoderParamsCreate = "encoder_params_create"
	StageSetQuality          = "params_set_quality"
	StageSetSampling         = "params_set_sampling"
	StageDecoderStateCreate  = "decoder_state_create"
	StageImageInfo           = "get_image_info"
	StageEncode              = "encode_image"
	StageBitstreamLength     = "retrieve_bitstream_length"
	StageRetrieveBitstream   = "retrieve_bitstream"
	StageDecode              = "decode"
)

// destroyer is a sub-object created through the session's handle
type destroyer struct {
	name    string
	destroy func() status.Code
}

// Session owns one engine handle and every sub-object created from it.
// It is scoped to a single call and is not safe for concurrent use.
type Session struct {
	engine  string
	handle  Handle
	objects []destroyer
	log     *logrus.Entry
	closed  bool
}

// Open creates a handle on engine
func Open(engine Engine, log *logrus.Entry) (*Session, error) {
	h, code := engine.Open()
	if !code.OK() {
		return nil, status.EngineUnavailable(StageCreateHandle, code)
	}

	log.WithField("engine", engine.Name()).Debug("codec handle created")

	return &Session{
		engine: engine.Name(),
		handle: h,
		log:    log,
	}, nil
}

// Engine returns the name of the engine the session was opened on
func (s *Session) Engine() string { return s.engine }

func (s *Session) track(name string, destroy func() status.Code) {
	s.objects = append(s.objects, destroyer{name: name, destroy: destroy})
	s.log.Debugf("%s created", name)
}

// EncoderState creates an encoder state owned by the session
func (s *Session) EncoderState() (EncoderState, error) {
	st, code := s.handle.CreateEncoderState()
	if err := status.Engine(StageEncoderStateCreate, code); err != nil {
		return nil, err
	}
	s.track("encoder state", st.Destroy)
	return st, nil
}

// EncoderParams creates encoder params owned by the session and applies p
func (s *Session) EncoderParams(p EncodeParams) (EncoderParams, error) {
	params, code := s.handle.CreateEncoderParams()
	if err := status.Engine(StageEncoderParamsCreate, code); err != nil {
		return nil, err
	}
	s.track("encoder params", params.Destroy)

	if err := status.Engine(StageSetQuality, params.SetQuality(p.Quality)); err != nil {
		return nil, err
	}
	if err := status.Engine(StageSetSampling, params.SetSamplingFactors(p.Subsampling)); err != nil {
		return nil, err
	}

	return params, nil
}

// DecoderState creates a decoder state owned by the session
func (s *Session) DecoderState() (DecoderState, error) {
	st, code := s.handle.CreateDecoderState()
	if err := status.Engine(StageDecoderStateCreate, code); err != nil {
		return nil, err
	}
	s.track("decoder state", st.Destroy)
	return st, nil
}

// ImageInfo parses the stream header
func (s *Session) ImageInfo(data []byte) (ImageInfo, error) {
	info, code := s.handle.ImageInfo(data)
	if err := status.Engine(StageImageInfo, code); err != nil {
		return ImageInfo{}, err
	}
	return info, nil
}

// Encode runs the engine's encode on src
func (s *Session) Encode(st EncoderState, params EncoderParams, src Image) error {
	return status.Engine(StageEncode, s.handle.Encode(st, params, src))
}

// BitstreamLength queries the size of the last encoded bitstream
func (s *Session) BitstreamLength(st EncoderState) (int, error) {
	n, code := s.handle.RetrieveBitstream(st, nil)
	if err := status.Engine(StageBitstreamLength, code); err != nil {
		return 0, err
	}
	return n, nil
}

// RetrieveBitstream copies the last encoded bitstream into dst
func (s *Session) RetrieveBitstream(st EncoderState, dst []byte) (int, error) {
	n, code := s.handle.RetrieveBitstream(st, dst)
	if err := status.Engine(StageRetrieveBitstream, code); err != nil {
		return 0, err
	}
	return n, nil
}

// Decode runs the engine's decode of data into dst
func (s *Session) Decode(st DecoderState, data []byte, dst Image) error {
	return status.Engine(StageDecode, s.handle.Decode(st, data, dst))
}

// Close destroys sub-objects in reverse creation order, then the handle.
// Failures are logged and returned combined for inspection, but callers on a
// result or error path must not let them replace their own outcome.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs error
	for i := len(s.objects) - 1; i >= 0; i-- {
		obj := s.objects[i]
		if err := status.Engine("destroy "+obj.name, obj.destroy()); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		s.log.Debugf("%s destroyed", obj.name)
	}
	s.objects = nil

	if err := status.Engine("destroy handle", s.handle.Destroy()); err != nil {
		errs = multierr.Append(errs, err)
	} else {
		s.log.Debug("codec handle destroyed")
	}

	if errs != nil {
		s.log.WithError(errs).Warn("codec session teardown reported failures")
		return fmt.Errorf("closing %s session: %w", s.engine, errs)
	}
	return nil
}
