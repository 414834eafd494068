package payload

import (
	"github.com/pion/rtp"

	"github.com/mediamesh/rtspcore/pkg/rtptime"
	"github.com/mediamesh/rtspcore/pkg/unit"
)

// simplePayloader packetizes codecs whose access units need no
// codec-specific fragmentation header: the unit is carried as-is, split
// into consecutive packets when it exceeds the maximum payload size.
type simplePayloader struct {
	c Config

	timeEncoder    *rtptime.Encoder
	sequenceNumber uint16
}

func newSimple(c Config) *simplePayloader {
	return &simplePayloader{
		c: c,
		timeEncoder: &rtptime.Encoder{
			ClockRate:        c.ClockRate,
			InitialTimestamp: *c.InitialTimestamp,
		},
		sequenceNumber: *c.InitialSequenceNumber,
	}
}

// Payload implements Payloader.
func (p *simplePayloader) Payload(u *unit.Encoded) ([]*rtp.Packet, error) {
	ts := p.timeEncoder.Encode(u.Timestamp)

	count := packetCount(p.c.PayloadMaxSize, len(u.Payload))
	ret := make([]*rtp.Packet, count)
	buf := u.Payload

	for i := range ret {
		le := p.c.PayloadMaxSize
		if i == (count - 1) {
			le = len(buf)
		}

		ret[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        rtpVersion,
				PayloadType:    p.c.PayloadType,
				SequenceNumber: p.sequenceNumber,
				Timestamp:      ts,
				SSRC:           *p.c.SSRC,
				Marker:         i == (count - 1),
			},
			Payload: buf[:le],
		}

		p.sequenceNumber++
		buf = buf[le:]
	}

	return ret, nil
}
