// Package source contains frame sources.
//
// A source produces timestamped raw frames on its own clock. Synthetic
// sources generate content as a pure function of the frame index, so two
// sources with the same configuration produce bit-identical frames.
package source

import (
	"github.com/mediamesh/rtspcore/pkg/unit"
)

// Source is a frame source.
type Source interface {
	// NextFrame returns the next frame.
	// It returns io.EOF when the stream is over, or another error when
	// the source cannot produce frames anymore.
	NextFrame() (*unit.Frame, error)
}
