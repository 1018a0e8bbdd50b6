package pipeline

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xupit3r/gpujpeg/internal/codec"
	"github.com/xupit3r/gpujpeg/internal/pixel"
	"github.com/xupit3r/gpujpeg/internal/status"
)

// Decode decompresses a JPEG bitstream into a (H, W, 3) uint8 array.
//
// The header is parsed before any device memory is allocated, so a stream
// that is not a JPEG fails at get_image_info without touching the device.
func Decode(data []byte, opts Options) (*pixel.Array, error) {
	log := opts.log("decode").WithField("input_bytes", len(data))
	start := time.Now()

	sess, err := codec.Open(opts.Engine, log)
	if err != nil {
		return nil, err
	}
	defer closeSession(sess)

	state, err := sess.DecoderState()
	if err != nil {
		return nil, err
	}

	info, err := sess.ImageInfo(data)
	if err != nil {
		return nil, err
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, status.Engine(codec.StageImageInfo, status.BadJPEG)
	}
	log = log.WithFields(logrus.Fields{
		"width":       info.Width,
		"height":      info.Height,
		"subsampling": info.Subsampling.String(),
	})

	stride := info.Width * pixel.Channels
	buf, err := allocate(opts.Device, int64(info.Height*stride), log)
	if err != nil {
		return nil, err
	}
	defer release(buf, log)

	dst := codec.Image{
		Buffer: buf,
		Width:  info.Width,
		Height: info.Height,
		Pitch:  stride,
	}
	if err := sess.Decode(state, data, dst); err != nil {
		return nil, err
	}
	if err := synchronize(opts.Device); err != nil {
		return nil, err
	}

	out := pixel.NewRGB(info.Height, info.Width)
	if err := copyToHost(out.Data, buf); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"engine":  sess.Engine(),
		"elapsed": time.Since(start),
	}).Debug("decode complete")

	return out, nil
}
