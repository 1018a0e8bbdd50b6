package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xupit3r/gpujpeg/internal/codec"
	"github.com/xupit3r/gpujpeg/internal/pixel"
)

// Encode compresses a (H, W, 3) uint8 array into a JPEG bitstream.
//
// Resources are acquired in the order handle, encoder state, encoder params,
// device buffer and released in reverse when Encode returns.
func Encode(img *pixel.Array, opts Options) ([]byte, error) {
	height, width, stride, err := img.RGBShape()
	if err != nil {
		return nil, err
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}

	log := opts.log("encode").WithFields(logrus.Fields{
		"width":  width,
		"height": height,
	})
	start := time.Now()

	sess, err := codec.Open(opts.Engine, log)
	if err != nil {
		return nil, err
	}
	defer closeSession(sess)

	state, err := sess.EncoderState()
	if err != nil {
		return nil, err
	}
	params, err := sess.EncoderParams(opts.Params)
	if err != nil {
		return nil, err
	}

	buf, err := allocate(opts.Device, int64(height*stride), log)
	if err != nil {
		return nil, err
	}
	defer release(buf, log)

	if err := copyToDevice(buf, img.Data); err != nil {
		return nil, err
	}

	src := codec.Image{
		Buffer: buf,
		Width:  width,
		Height: height,
		Pitch:  stride,
	}
	if err := sess.Encode(state, params, src); err != nil {
		return nil, err
	}
	if err := synchronize(opts.Device); err != nil {
		return nil, err
	}

	n, err := sess.BitstreamLength(state)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	n, err = sess.RetrieveBitstream(state, out)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"engine":  sess.Engine(),
		"bytes":   n,
		"elapsed": time.Since(start),
	}).Debug("encode complete")

	return out[:n], nil
}
