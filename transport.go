package rtspcore

import (
	"fmt"
	"sync/atomic"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

// Transport delivers packets of one session to its client. It is supplied
// by the transport collaborator (RTSP connection, test harness) at setup
// time. Implementations are called from the session's writer goroutine
// only.
type Transport interface {
	// WriteRTP delivers a RTP packet of the given media.
	WriteRTP(mediaIndex int, pkt *rtp.Packet) error

	// WriteRTCP delivers a RTCP packet of the given media.
	WriteRTCP(mediaIndex int, pkt rtcp.Packet) error

	// Close releases the transport. It is called during session teardown.
	Close() error
}

// Loopback is an in-process Transport that hands packets to callbacks.
// It is used by tests and by local consumers that bypass the network.
type Loopback struct {
	// called with each RTP packet (optional).
	OnRTP func(mediaIndex int, pkt *rtp.Packet)

	// called with each RTCP packet (optional).
	OnRTCP func(mediaIndex int, pkt rtcp.Packet)

	closed atomic.Bool
}

// WriteRTP implements Transport.
func (l *Loopback) WriteRTP(mediaIndex int, pkt *rtp.Packet) error {
	if l.closed.Load() {
		return fmt.Errorf("transport is closed")
	}
	if l.OnRTP != nil {
		l.OnRTP(mediaIndex, pkt)
	}
	return nil
}

// WriteRTCP implements Transport.
func (l *Loopback) WriteRTCP(mediaIndex int, pkt rtcp.Packet) error {
	if l.closed.Load() {
		return fmt.Errorf("transport is closed")
	}
	if l.OnRTCP != nil {
		l.OnRTCP(mediaIndex, pkt)
	}
	return nil
}

// Close implements Transport. It makes subsequent writes fail, simulating
// a client disconnection when invoked by the consumer side.
func (l *Loopback) Close() error {
	l.closed.Store(true)
	return nil
}
