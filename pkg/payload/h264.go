package payload

import (
	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
	"github.com/pion/rtp"

	"github.com/mediamesh/rtspcore/pkg/rtptime"
	"github.com/mediamesh/rtspcore/pkg/unit"
)

// h264Payloader packetizes H264 access units.
// Specification: https://datatracker.ietf.org/doc/html/rfc6184
type h264Payloader struct {
	c Config

	timeEncoder    *rtptime.Encoder
	sequenceNumber uint16
}

func newH264(c Config) *h264Payloader {
	return &h264Payloader{
		c: c,
		timeEncoder: &rtptime.Encoder{
			ClockRate:        c.ClockRate,
			InitialTimestamp: *c.InitialTimestamp,
		},
		sequenceNumber: *c.InitialSequenceNumber,
	}
}

func lenAggregated(nalus [][]byte, addNALU []byte) int {
	n := 1 // header

	for _, nalu := range nalus {
		n += 2         // size
		n += len(nalu) // nalu
	}

	if addNALU != nil {
		n += 2            // size
		n += len(addNALU) // nalu
	}

	return n
}

func packetCount(avail, le int) int {
	n := le / avail
	if (le % avail) != 0 {
		n++
	}
	return n
}

// Payload implements Payloader.
func (p *h264Payloader) Payload(u *unit.Encoded) ([]*rtp.Packet, error) {
	var au h264.AnnexB
	err := au.Unmarshal(u.Payload)
	if err != nil {
		return nil, err
	}

	ts := p.timeEncoder.Encode(u.Timestamp)

	var rets []*rtp.Packet
	var batch [][]byte

	// split NALUs into batches
	for _, nalu := range au {
		if lenAggregated(batch, nalu) <= p.c.PayloadMaxSize {
			// add to existing batch
			batch = append(batch, nalu)
		} else {
			// write current batch
			if batch != nil {
				pkts := p.writeBatch(batch, ts, false)
				rets = append(rets, pkts...)
			}

			// initialize new batch
			batch = [][]byte{nalu}
		}
	}

	// write final batch
	// marker indicates that all packets with the same timestamp have been sent
	pkts := p.writeBatch(batch, ts, true)
	rets = append(rets, pkts...)

	return rets, nil
}

func (p *h264Payloader) writeBatch(nalus [][]byte, ts uint32, marker bool) []*rtp.Packet {
	if len(nalus) == 1 {
		// the NALU fits into a single RTP packet
		if len(nalus[0]) < p.c.PayloadMaxSize {
			return p.writeSingle(nalus[0], ts, marker)
		}

		// split the NALU into multiple fragmentation packets
		return p.writeFragmented(nalus[0], ts, marker)
	}

	return p.writeAggregated(nalus, ts, marker)
}

func (p *h264Payloader) writeSingle(nalu []byte, ts uint32, marker bool) []*rtp.Packet {
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        rtpVersion,
			PayloadType:    p.c.PayloadType,
			SequenceNumber: p.sequenceNumber,
			Timestamp:      ts,
			SSRC:           *p.c.SSRC,
			Marker:         marker,
		},
		Payload: nalu,
	}

	p.sequenceNumber++

	return []*rtp.Packet{pkt}
}

func (p *h264Payloader) writeFragmented(nalu []byte, ts uint32, marker bool) []*rtp.Packet {
	// use only FU-A, not FU-B, since we always use non-interleaved mode
	// (packetization-mode=1)
	avail := p.c.PayloadMaxSize - 2
	le := len(nalu) - 1
	count := packetCount(avail, le)

	ret := make([]*rtp.Packet, count)

	nri := (nalu[0] >> 5) & 0x03
	typ := nalu[0] & 0x1F
	nalu = nalu[1:] // remove header
	le = avail
	start := uint8(1)
	end := uint8(0)

	for i := range ret {
		if i == (count - 1) {
			end = 1
			le = len(nalu)
		}

		data := make([]byte, 2+le)
		data[0] = (nri << 5) | uint8(h264.NALUTypeFUA)
		data[1] = (start << 7) | (end << 6) | typ
		copy(data[2:], nalu)
		nalu = nalu[le:]

		ret[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        rtpVersion,
				PayloadType:    p.c.PayloadType,
				SequenceNumber: p.sequenceNumber,
				Timestamp:      ts,
				SSRC:           *p.c.SSRC,
				Marker:         (i == (count-1) && marker),
			},
			Payload: data,
		}

		p.sequenceNumber++
		start = 0
	}

	return ret
}

func (p *h264Payloader) writeAggregated(nalus [][]byte, ts uint32, marker bool) []*rtp.Packet {
	payload := make([]byte, lenAggregated(nalus, nil))

	// header
	payload[0] = uint8(h264.NALUTypeSTAPA)
	pos := 1

	for _, nalu := range nalus {
		// size
		naluLen := len(nalu)
		payload[pos] = uint8(naluLen >> 8)
		payload[pos+1] = uint8(naluLen)
		pos += 2

		// nalu
		copy(payload[pos:], nalu)
		pos += naluLen
	}

	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        rtpVersion,
			PayloadType:    p.c.PayloadType,
			SequenceNumber: p.sequenceNumber,
			Timestamp:      ts,
			SSRC:           *p.c.SSRC,
			Marker:         marker,
		},
		Payload: payload,
	}

	p.sequenceNumber++

	return []*rtp.Packet{pkt}
}
