package encoder

import (
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/g711"

	"github.com/mediamesh/rtspcore/pkg/unit"
)

// g711Encoder compands big-endian 16-bit LPCM frames with the Mu-law or
// A-law scheme. Every output unit is self-contained.
type g711Encoder struct {
	mulaw bool
}

// Encode implements Encoder.
func (e *g711Encoder) Encode(f *unit.Frame) ([]*unit.Encoded, error) {
	var buf []byte
	var err error

	if e.mulaw {
		buf, err = g711.Mulaw(f.Payload).Marshal()
	} else {
		buf, err = g711.Alaw(f.Payload).Marshal()
	}
	if err != nil {
		return nil, err
	}

	return []*unit.Encoded{{
		Timestamp: f.Timestamp,
		Payload:   buf,
		Keyframe:  true,
	}}, nil
}
