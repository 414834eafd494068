package payload

import (
	"testing"
	"time"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/stretchr/testify/require"

	"github.com/mediamesh/rtspcore/pkg/description"
	"github.com/mediamesh/rtspcore/pkg/unit"
)

func uint16Ptr(v uint16) *uint16 {
	return &v
}

func uint32Ptr(v uint32) *uint32 {
	return &v
}

func testConfig(codec string, clockRate int) Config {
	return Config{
		Codec:                 codec,
		PayloadType:           96,
		ClockRate:             clockRate,
		SSRC:                  uint32Ptr(0x9dbb7812),
		InitialSequenceNumber: uint16Ptr(0x44ed),
		InitialTimestamp:      uint32Ptr(0x88776655),
	}
}

func annexB(t *testing.T, nalus ...[]byte) []byte {
	t.Helper()
	buf, err := h264.AnnexB(nalus).Marshal()
	require.NoError(t, err)
	return buf
}

func TestNewErrors(t *testing.T) {
	_, err := New(Config{Codec: description.CodecH264})
	require.EqualError(t, err, "invalid clock rate 0")

	_, err = New(Config{Codec: "JPEG2000", ClockRate: 90000})
	require.EqualError(t, err, "unsupported codec \"JPEG2000\"")
}

func TestH264Single(t *testing.T) {
	p, err := New(testConfig(description.CodecH264, 90000))
	require.NoError(t, err)

	pkts, err := p.Payload(&unit.Encoded{
		Timestamp: time.Second,
		Payload:   annexB(t, []byte{0x65, 1, 2, 3}),
	})
	require.NoError(t, err)
	require.Len(t, pkts, 1)

	require.Equal(t, uint8(96), pkts[0].PayloadType)
	require.Equal(t, uint16(0x44ed), pkts[0].SequenceNumber)
	require.Equal(t, uint32(0x88776655+90000), pkts[0].Timestamp)
	require.Equal(t, true, pkts[0].Marker)
	require.Equal(t, []byte{0x65, 1, 2, 3}, pkts[0].Payload)
}

func TestH264Aggregated(t *testing.T) {
	p, err := New(testConfig(description.CodecH264, 90000))
	require.NoError(t, err)

	sps := []byte{0x67, 1, 2}
	pps := []byte{0x68, 3}
	idr := []byte{0x65, 4, 5, 6}

	pkts, err := p.Payload(&unit.Encoded{
		Payload:  annexB(t, sps, pps, idr),
		Keyframe: true,
	})
	require.NoError(t, err)
	require.Len(t, pkts, 1)

	// STAP-A with the three NALUs inside.
	require.Equal(t, uint8(h264.NALUTypeSTAPA), pkts[0].Payload[0]&0x1F)
	require.Equal(t, true, pkts[0].Marker)
	require.Equal(t, []byte{
		byte(h264.NALUTypeSTAPA),
		0, 3, 0x67, 1, 2,
		0, 2, 0x68, 3,
		0, 4, 0x65, 4, 5, 6,
	}, pkts[0].Payload)
}

func TestH264Fragmented(t *testing.T) {
	c := testConfig(description.CodecH264, 90000)
	c.PayloadMaxSize = 100
	p, err := New(c)
	require.NoError(t, err)

	nalu := make([]byte, 1+250)
	nalu[0] = 0x65
	for i := range nalu[1:] {
		nalu[1+i] = byte(i)
	}

	pkts, err := p.Payload(&unit.Encoded{Payload: annexB(t, nalu)})
	require.NoError(t, err)

	// 250 bytes of body in chunks of 98.
	require.Len(t, pkts, 3)

	var reassembled []byte
	for i, pkt := range pkts {
		require.Equal(t, uint8(h264.NALUTypeFUA), pkt.Payload[0]&0x1F)

		start := pkt.Payload[1]>>7 == 1
		end := (pkt.Payload[1]>>6)&1 == 1
		require.Equal(t, i == 0, start, "packet %d", i)
		require.Equal(t, i == len(pkts)-1, end, "packet %d", i)

		// marker only on the last packet of the unit.
		require.Equal(t, i == len(pkts)-1, pkt.Marker, "packet %d", i)

		// sequence numbers advance by one inside the unit too.
		require.Equal(t, uint16(0x44ed+i), pkt.SequenceNumber)

		require.Equal(t, uint8(h264.NALUTypeIDR), pkt.Payload[1]&0x1F)
		reassembled = append(reassembled, pkt.Payload[2:]...)
	}

	require.Equal(t, nalu[1:], reassembled)
}

func TestSequenceNumberWrap(t *testing.T) {
	c := testConfig(description.CodecPCMU, 8000)
	c.InitialSequenceNumber = uint16Ptr(65530)
	p, err := New(c)
	require.NoError(t, err)

	var seqs []uint16
	for i := 0; i < 10; i++ {
		pkts, err := p.Payload(&unit.Encoded{
			Timestamp: time.Duration(i) * 20 * time.Millisecond,
			Payload:   make([]byte, 160),
		})
		require.NoError(t, err)
		require.Len(t, pkts, 1)
		seqs = append(seqs, pkts[0].SequenceNumber)
	}

	// contiguous modulo 2^16, no gaps or repeats.
	for i, seq := range seqs {
		require.Equal(t, uint16(65530+i), seq, "packet %d", i)
	}
	require.Equal(t, uint16(3), seqs[9])
}

func TestSimpleSplit(t *testing.T) {
	c := testConfig(description.CodecOpus, 48000)
	c.PayloadMaxSize = 100
	p, err := New(c)
	require.NoError(t, err)

	pkts, err := p.Payload(&unit.Encoded{Payload: make([]byte, 250)})
	require.NoError(t, err)
	require.Len(t, pkts, 3)

	require.Len(t, pkts[0].Payload, 100)
	require.Len(t, pkts[1].Payload, 100)
	require.Len(t, pkts[2].Payload, 50)

	require.Equal(t, false, pkts[0].Marker)
	require.Equal(t, false, pkts[1].Marker)
	require.Equal(t, true, pkts[2].Marker)
}

func TestTimestampsNonDecreasing(t *testing.T) {
	p, err := New(testConfig(description.CodecPCMA, 8000))
	require.NoError(t, err)

	var prev uint32
	for i := 0; i < 200; i++ {
		pkts, err := p.Payload(&unit.Encoded{
			Timestamp: time.Duration(i) * 20 * time.Millisecond,
			Payload:   make([]byte, 160),
		})
		require.NoError(t, err)

		for _, pkt := range pkts {
			if i > 0 {
				require.GreaterOrEqual(t, pkt.Timestamp, prev)
			}
			prev = pkt.Timestamp
		}
	}

	// 200 frames of 20ms at 8 kHz: 160 clock units per frame, no drift.
	require.Equal(t, uint32(0x88776655+199*160), prev)
}
