// Package pipeline runs single encode and decode calls end to end: it opens a
// codec session, stages pixels through device memory, drives the engine and
// releases everything it acquired before returning, on every path.
package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/xupit3r/gpujpeg/internal/codec"
	"github.com/xupit3r/gpujpeg/internal/gpu"
	"github.com/xupit3r/gpujpeg/internal/logging"
)

// Options carries the collaborators of one call
type Options struct {
	Device gpu.Device
	Engine codec.Engine
	Params codec.EncodeParams // encode only
	Log    *logrus.Entry
}

func (o Options) log(op string) *logrus.Entry {
	if o.Log != nil {
		return o.Log
	}
	return logging.Call(op)
}

// closeSession tears the session down after the call's own outcome is fixed.
// Teardown failures are already logged by the session.
func closeSession(sess *codec.Session) {
	_ = sess.Close()
}
