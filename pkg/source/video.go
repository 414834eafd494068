package source

import (
	"fmt"
	"math"
	"time"

	"github.com/mediamesh/rtspcore/pkg/unit"
)

// VideoPattern is a synthetic video test pattern.
type VideoPattern string

// video patterns.
const (
	VideoPatternBall     VideoPattern = "ball"
	VideoPatternSMPTE    VideoPattern = "smpte"
	VideoPatternCheckers VideoPattern = "checkers"
	VideoPatternSolid    VideoPattern = "solid"
)

// luma values of the seven SMPTE color bars, left to right.
var smpteBars = []byte{180, 162, 131, 112, 84, 65, 35}

// Video is a synthetic video source.
// It emits one luma plane per frame at a fixed rate.
type Video struct {
	// frame width, in pixels.
	Width int

	// frame height, in pixels.
	Height int

	// frame rate, in frames per second.
	FPS int

	// test pattern.
	Pattern VideoPattern

	frameIndex int64
}

// Initialize validates the configuration.
func (s *Video) Initialize() error {
	if s.Width <= 0 || s.Height <= 0 {
		return fmt.Errorf("invalid resolution %dx%d", s.Width, s.Height)
	}

	if s.FPS <= 0 {
		return fmt.Errorf("invalid frame rate %d", s.FPS)
	}

	switch s.Pattern {
	case VideoPatternBall, VideoPatternSMPTE, VideoPatternCheckers, VideoPatternSolid:
	case "":
		s.Pattern = VideoPatternSMPTE
	default:
		return fmt.Errorf("invalid pattern %q", s.Pattern)
	}

	return nil
}

// NextFrame implements Source.
func (s *Video) NextFrame() (*unit.Frame, error) {
	i := s.frameIndex
	s.frameIndex++

	return &unit.Frame{
		Timestamp: time.Duration(i) * time.Second / time.Duration(s.FPS),
		Payload:   s.render(i),
	}, nil
}

func (s *Video) render(i int64) []byte {
	buf := make([]byte, s.Width*s.Height)

	switch s.Pattern {
	case VideoPatternBall:
		s.renderBall(buf, i)

	case VideoPatternSMPTE:
		s.renderSMPTE(buf)

	case VideoPatternCheckers:
		s.renderCheckers(buf, i)

	case VideoPatternSolid:
		for j := range buf {
			buf[j] = 128
		}
	}

	return buf
}

// a bright ball orbiting the frame center on a dark background.
func (s *Video) renderBall(buf []byte, i int64) {
	radius := s.Height / 10
	angle := 2 * math.Pi * float64(i%int64(s.FPS)) / float64(s.FPS)
	cx := s.Width/2 + int(float64(s.Width/4)*math.Cos(angle))
	cy := s.Height/2 + int(float64(s.Height/4)*math.Sin(angle))

	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				buf[y*s.Width+x] = 235
			} else {
				buf[y*s.Width+x] = 16
			}
		}
	}
}

func (s *Video) renderSMPTE(buf []byte) {
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			bar := x * len(smpteBars) / s.Width
			buf[y*s.Width+x] = smpteBars[bar]
		}
	}
}

// checkerboard scrolling one square per frame.
func (s *Video) renderCheckers(buf []byte, i int64) {
	const square = 8

	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			cell := (x+int(i))/square + y/square
			if cell%2 == 0 {
				buf[y*s.Width+x] = 235
			} else {
				buf[y*s.Width+x] = 16
			}
		}
	}
}
