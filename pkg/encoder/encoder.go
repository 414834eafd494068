// Package encoder contains encoder stages.
//
// An encoder consumes raw frames from one source and emits encoded access
// units with codec-specific framing: keyframe cadence, inline parameter
// sets, companding. Bitrate is a target, not a ceiling; encoders use it to
// size their output and may exceed it momentarily.
package encoder

import (
	"fmt"

	"github.com/mediamesh/rtspcore/pkg/description"
	"github.com/mediamesh/rtspcore/pkg/unit"
)

// Encoder is an encoder stage.
type Encoder interface {
	// Encode encodes a raw frame into zero or more access units.
	Encode(f *unit.Frame) ([]*unit.Encoded, error)
}

// Config is the configuration of an encoder stage.
type Config struct {
	// codec name.
	Codec string

	// frame width, in pixels (video only).
	Width int

	// frame height, in pixels (video only).
	Height int

	// frame rate (video only).
	FPS int

	// target bitrate, in kbit/s (video only, advisory).
	BitRate int

	// emit a keyframe every KeyframeInterval frames (video only).
	KeyframeInterval int

	// carry decoder parameter sets inline with every keyframe.
	RepeatParams bool
}

// New allocates an encoder stage.
func New(c Config) (Encoder, error) {
	switch c.Codec {
	case description.CodecH264:
		e := &h264Encoder{c: c}
		err := e.initialize()
		if err != nil {
			return nil, err
		}
		return e, nil

	case description.CodecPCMU:
		return &g711Encoder{mulaw: true}, nil

	case description.CodecPCMA:
		return &g711Encoder{mulaw: false}, nil

	case description.CodecG722, description.CodecOpus:
		return &passthroughEncoder{audio: true}, nil

	case description.CodecVP8:
		e := &passthroughEncoder{keyframeInterval: c.KeyframeInterval}
		if e.keyframeInterval == 0 {
			e.keyframeInterval = defaultKeyframeInterval
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unsupported codec %q", c.Codec)
	}
}
