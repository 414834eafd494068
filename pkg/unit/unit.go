// Package unit contains the value types moved between pipeline stages.
package unit

import (
	"time"
)

// Frame is a raw audio or video frame emitted by a source.
// A Frame is owned by the stage that is currently processing it;
// stages hand it over, they never share it.
type Frame struct {
	// timestamp relative to the source clock.
	Timestamp time.Duration

	// raw payload. Luma plane for video, big-endian 16-bit LPCM for audio.
	Payload []byte

	// hint that the downstream encoder should emit a keyframe.
	Keyframe bool
}

// Encoded is an encoded access unit emitted by an encoder stage.
type Encoded struct {
	// timestamp relative to the source clock.
	Timestamp time.Duration

	// encoded payload. Annex-B access unit for H264, codec frame otherwise.
	Payload []byte

	// whether the unit can be decoded without any previous unit.
	Keyframe bool
}
