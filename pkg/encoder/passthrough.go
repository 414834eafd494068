package encoder

import (
	"github.com/mediamesh/rtspcore/pkg/unit"
)

// passthroughEncoder frames payloads that reach the pipeline already
// encoded (Opus, G722, VP8 from an external capture). It only applies the
// keyframe cadence; the actual compression belongs to the collaborator
// that produced the payload.
type passthroughEncoder struct {
	audio            bool
	keyframeInterval int

	frameIndex int64
}

// Encode implements Encoder.
func (e *passthroughEncoder) Encode(f *unit.Frame) ([]*unit.Encoded, error) {
	i := e.frameIndex
	e.frameIndex++

	keyframe := e.audio || f.Keyframe
	if !e.audio && e.keyframeInterval > 0 && i%int64(e.keyframeInterval) == 0 {
		keyframe = true
	}

	return []*unit.Encoded{{
		Timestamp: f.Timestamp,
		Payload:   f.Payload,
		Keyframe:  keyframe,
	}}, nil
}
