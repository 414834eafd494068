// Package rtptime contains a RTP timestamp encoder.
package rtptime

import (
	"time"
)

// avoid an int64 overflow and preserve resolution by splitting division into
// two parts: first add the integer part, then the decimal part.
func multiplyAndDivide(v, m, d int64) int64 {
	secs := v / d
	dec := v % d
	return (secs*m + dec*m/d)
}

// Encoder is a RTP timestamp encoder.
// It converts a duration on the source clock into units of the codec clock
// with integer arithmetic only, so that repeated conversions never
// accumulate drift.
type Encoder struct {
	// clock rate of the codec.
	ClockRate int

	// initial timestamp (optional).
	InitialTimestamp uint32
}

// Encode encodes a timestamp.
func (e *Encoder) Encode(ts time.Duration) uint32 {
	return e.InitialTimestamp + uint32(multiplyAndDivide(int64(ts), int64(e.ClockRate), int64(time.Second)))
}
