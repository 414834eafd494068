package rtcpsender

import (
	"testing"
	"time"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

func TestSenderReport(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	rs := &Sender{
		ClockRate: 90000,
		Period:    time.Hour,
		TimeNow: func() time.Time {
			return now
		},
		WritePacketRTCP: func(rtcp.Packet) {},
	}
	rs.Initialize()
	defer rs.Close()

	require.Nil(t, rs.Report())

	rs.ProcessPacket(&rtp.Packet{
		Header: rtp.Header{
			SSRC:           0x11223344,
			SequenceNumber: 7,
			Timestamp:      90000,
		},
		Payload: make([]byte, 100),
	}, now)

	rs.ProcessPacket(&rtp.Packet{
		Header: rtp.Header{
			SSRC:           0x11223344,
			SequenceNumber: 8,
			Timestamp:      93000,
		},
		Payload: make([]byte, 50),
	}, now)

	report := rs.Report()
	require.NotNil(t, report)

	sr, ok := report.(*rtcp.SenderReport)
	require.Equal(t, true, ok)
	require.Equal(t, uint32(0x11223344), sr.SSRC)
	require.Equal(t, uint32(93000), sr.RTPTime)
	require.Equal(t, uint32(2), sr.PacketCount)
	require.Equal(t, uint32(150), sr.OctetCount)
}
