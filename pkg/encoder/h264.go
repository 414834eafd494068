package encoder

import (
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"

	"github.com/mediamesh/rtspcore/pkg/unit"
)

const (
	defaultKeyframeInterval = 60
	defaultBitRate          = 2000

	// a keyframe carries a full refresh and is allowed this many times
	// the per-frame byte budget.
	keyframeSizeFactor = 3

	minSliceSize = 64
)

// parameter sets describing a baseline 4:2:0 stream. They are emitted
// inline with keyframes when RepeatParams is enabled and exposed to the
// describe surface through H264Params.
var (
	h264SPS = []byte{
		0x67, 0x64, 0x00, 0x0c, 0xac, 0x3b, 0x50, 0xb0,
		0x4b, 0x42, 0x00, 0x00, 0x03, 0x00, 0x02, 0x00,
		0x00, 0x03, 0x00, 0x3d, 0x08,
	}
	h264PPS = []byte{0x68, 0xee, 0x3c, 0x80}
)

// H264Params returns the SPS and PPS in use.
func H264Params() (sps []byte, pps []byte) {
	return h264SPS, h264PPS
}

type h264Encoder struct {
	c Config

	sliceSize  int
	frameIndex int64
}

func (e *h264Encoder) initialize() error {
	if e.c.Width <= 0 || e.c.Height <= 0 || e.c.Width%2 != 0 || e.c.Height%2 != 0 {
		return fmt.Errorf("unsupported resolution %dx%d", e.c.Width, e.c.Height)
	}

	if e.c.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %d", e.c.FPS)
	}

	if e.c.KeyframeInterval <= 0 {
		e.c.KeyframeInterval = defaultKeyframeInterval
	}

	if e.c.BitRate <= 0 {
		e.c.BitRate = defaultBitRate
	}

	e.sliceSize = e.c.BitRate * 1000 / 8 / e.c.FPS
	if e.sliceSize < minSliceSize {
		e.sliceSize = minSliceSize
	}

	return nil
}

// Encode implements Encoder.
// Every KeyframeInterval-th frame (by count) becomes an IDR access unit;
// with RepeatParams enabled, SPS and PPS travel inside that unit.
func (e *h264Encoder) Encode(f *unit.Frame) ([]*unit.Encoded, error) {
	i := e.frameIndex
	e.frameIndex++

	keyframe := (i%int64(e.c.KeyframeInterval) == 0) || f.Keyframe

	var au h264.AnnexB
	if keyframe {
		slice := e.slice(f.Payload, h264.NALUTypeIDR, e.sliceSize*keyframeSizeFactor)
		if e.c.RepeatParams {
			au = h264.AnnexB{h264SPS, h264PPS, slice}
		} else {
			au = h264.AnnexB{slice}
		}
	} else {
		au = h264.AnnexB{e.slice(f.Payload, h264.NALUTypeNonIDR, e.sliceSize)}
	}

	buf, err := au.Marshal()
	if err != nil {
		return nil, err
	}

	return []*unit.Encoded{{
		Timestamp: f.Timestamp,
		Payload:   buf,
		Keyframe:  keyframe,
	}}, nil
}

// slice builds a single slice NALU of roughly size bytes whose body is a
// deterministic subsample of the raw frame.
func (e *h264Encoder) slice(raw []byte, typ h264.NALUType, size int) []byte {
	nalu := make([]byte, 1, size+1)
	nalu[0] = byte(typ) // forbidden_zero_bit 0, nal_ref_idc 0

	if typ == h264.NALUTypeIDR {
		nalu[0] |= 3 << 5
	} else {
		nalu[0] |= 2 << 5
	}

	stride := len(raw) / size
	if stride < 1 {
		stride = 1
	}

	for pos := 0; pos < len(raw) && len(nalu) < size+1; pos += stride {
		nalu = append(nalu, raw[pos])
	}

	return nalu
}
