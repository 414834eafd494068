// Package payload contains RTP payloaders.
//
// A payloader converts encoded access units into RTP packets. Sequence
// numbers increase by one per packet and wrap at 16 bits, independently of
// unit boundaries; the marker bit is set only on the last packet of each
// unit; timestamps are expressed in units of the codec clock.
package payload

import (
	"crypto/rand"
	"fmt"

	"github.com/pion/rtp"

	"github.com/mediamesh/rtspcore/pkg/description"
	"github.com/mediamesh/rtspcore/pkg/unit"
)

const (
	rtpVersion            = 2
	defaultPayloadMaxSize = 1460 // 1500 (UDP MTU) - 20 (IP header) - 8 (UDP header) - 12 (RTP header)
)

func randUint32() (uint32, error) {
	var b [4]byte
	_, err := rand.Read(b[:])
	if err != nil {
		return 0, err
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// Payloader is a RTP payloader.
type Payloader interface {
	// Payload converts an access unit into one or more RTP packets.
	Payload(u *unit.Encoded) ([]*rtp.Packet, error)
}

// Config is the configuration of a Payloader.
type Config struct {
	// codec name.
	Codec string

	// payload type of packets.
	PayloadType uint8

	// clock rate of the codec.
	ClockRate int

	// SSRC of packets (optional).
	// It defaults to a random value.
	SSRC *uint32

	// initial sequence number of packets (optional).
	// It defaults to a random value.
	InitialSequenceNumber *uint16

	// initial timestamp of packets (optional).
	// It defaults to a random value.
	InitialTimestamp *uint32

	// maximum size of packet payloads (optional).
	// It defaults to 1460.
	PayloadMaxSize int
}

func (c *Config) fillDefaults() error {
	if c.SSRC == nil {
		v, err := randUint32()
		if err != nil {
			return err
		}
		c.SSRC = &v
	}

	if c.InitialSequenceNumber == nil {
		v, err := randUint32()
		if err != nil {
			return err
		}
		v2 := uint16(v)
		c.InitialSequenceNumber = &v2
	}

	if c.InitialTimestamp == nil {
		v, err := randUint32()
		if err != nil {
			return err
		}
		c.InitialTimestamp = &v
	}

	if c.PayloadMaxSize == 0 {
		c.PayloadMaxSize = defaultPayloadMaxSize
	}

	return nil
}

// New allocates a Payloader.
func New(c Config) (Payloader, error) {
	if c.ClockRate <= 0 {
		return nil, fmt.Errorf("invalid clock rate %d", c.ClockRate)
	}

	err := c.fillDefaults()
	if err != nil {
		return nil, err
	}

	switch c.Codec {
	case description.CodecH264:
		return newH264(c), nil

	case description.CodecPCMU, description.CodecPCMA,
		description.CodecG722, description.CodecOpus, description.CodecVP8:
		return newSimple(c), nil

	default:
		return nil, fmt.Errorf("unsupported codec %q", c.Codec)
	}
}
