// Package rtcpsender contains a utility to generate RTCP sender reports.
package rtcpsender

import (
	"math"
	"sync"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

// ntpEncode encodes a timestamp in NTP format.
// Specification: RFC3550, section 4
func ntpEncode(t time.Time) uint64 {
	ntp := uint64(t.UnixNano()) + 2208988800*1000000000
	secs := ntp / 1000000000
	fractional := uint64(math.Round(float64((ntp%1000000000)*(1<<32)) / 1000000000))
	return secs<<32 | fractional
}

// Sender generates RTCP sender reports for one outgoing RTP flow.
type Sender struct {
	// clock rate of the flow.
	ClockRate int

	// interval between reports.
	Period time.Duration

	// called with each generated report.
	WritePacketRTCP func(rtcp.Packet)

	// System time function (optional). It defaults to time.Now.
	TimeNow func() time.Time

	mutex sync.RWMutex

	// data from RTP packets
	firstRTPPacketSent bool
	lastTimeRTP        uint32
	lastTimeNTP        time.Time
	lastTimeSystem     time.Time
	localSSRC          uint32
	lastSequenceNumber uint16
	packetCount        uint32
	octetCount         uint32

	terminate chan struct{}
	done      chan struct{}
}

// Initialize initializes a Sender.
func (rs *Sender) Initialize() {
	if rs.TimeNow == nil {
		rs.TimeNow = time.Now
	}

	rs.terminate = make(chan struct{})
	rs.done = make(chan struct{})

	go rs.run()
}

// Close closes the Sender.
func (rs *Sender) Close() {
	close(rs.terminate)
	<-rs.done
}

func (rs *Sender) run() {
	defer close(rs.done)

	t := time.NewTicker(rs.Period)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			report := rs.Report()
			if report != nil {
				rs.WritePacketRTCP(report)
			}

		case <-rs.terminate:
			return
		}
	}
}

// Report generates a sender report with the current counters.
// It returns nil when no packet has been processed yet.
func (rs *Sender) Report() rtcp.Packet {
	rs.mutex.RLock()
	defer rs.mutex.RUnlock()

	if !rs.firstRTPPacketSent || rs.ClockRate == 0 {
		return nil
	}

	systemTimeDiff := rs.TimeNow().Sub(rs.lastTimeSystem)
	ntpTime := rs.lastTimeNTP.Add(systemTimeDiff)
	rtpTime := rs.lastTimeRTP + uint32(systemTimeDiff.Seconds()*float64(rs.ClockRate))

	return &rtcp.SenderReport{
		SSRC:        rs.localSSRC,
		NTPTime:     ntpEncode(ntpTime),
		RTPTime:     rtpTime,
		PacketCount: rs.packetCount,
		OctetCount:  rs.octetCount,
	}
}

// ProcessPacket extracts data from an outgoing RTP packet.
func (rs *Sender) ProcessPacket(pkt *rtp.Packet, ntp time.Time) {
	rs.mutex.Lock()
	defer rs.mutex.Unlock()

	rs.firstRTPPacketSent = true
	rs.lastTimeRTP = pkt.Timestamp
	rs.lastTimeNTP = ntp
	rs.lastTimeSystem = rs.TimeNow()
	rs.localSSRC = pkt.SSRC
	rs.lastSequenceNumber = pkt.SequenceNumber

	rs.packetCount++
	rs.octetCount += uint32(len(pkt.Payload))
}
