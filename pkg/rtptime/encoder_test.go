package rtptime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncoder(t *testing.T) {
	e := &Encoder{ClockRate: 90000, InitialTimestamp: 12345}

	require.Equal(t, uint32(12345), e.Encode(0))
	require.Equal(t, uint32(12345+135000), e.Encode(3*time.Second/2))
}

func TestEncoderNoDrift(t *testing.T) {
	// 1/30s is not representable exactly in clock units of 8000 Hz;
	// summing per-frame increments would drift, converting the absolute
	// timestamp must not.
	e := &Encoder{ClockRate: 8000}

	for i := int64(0); i < 90000; i++ {
		ts := time.Duration(i) * time.Second / 30
		expected := uint32(i * 8000 / 30)
		require.Equal(t, expected, e.Encode(ts), "frame %d", i)
	}
}

func TestEncoderOverflow(t *testing.T) {
	e := &Encoder{ClockRate: 90000}

	// long uptimes must not overflow the intermediate math.
	expected := uint64(30*86400) * 90000
	require.Equal(t, uint32(expected), e.Encode(30*24*time.Hour))
}
