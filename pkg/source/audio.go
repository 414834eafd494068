package source

import (
	"fmt"
	"math"
	"time"

	"github.com/mediamesh/rtspcore/pkg/unit"
)

// AudioWave is a synthetic audio waveform.
type AudioWave string

// audio waveforms.
const (
	AudioWaveSine    AudioWave = "sine"
	AudioWaveTicks   AudioWave = "ticks"
	AudioWaveSilence AudioWave = "silence"
)

// FrameDuration is the duration of a single raw audio frame.
const FrameDuration = 20 * time.Millisecond

// Audio is a synthetic audio source.
// It emits frames of big-endian 16-bit LPCM samples, 20ms each.
type Audio struct {
	// sample rate, in Hz.
	SampleRate int

	// channel count.
	Channels int

	// waveform.
	Wave AudioWave

	// tone frequency, in Hz (optional). It defaults to 440.
	Frequency int

	frameIndex int64
}

// Initialize validates the configuration.
func (s *Audio) Initialize() error {
	if s.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", s.SampleRate)
	}

	if s.Channels == 0 {
		s.Channels = 1
	}
	if s.Channels < 0 || s.Channels > 2 {
		return fmt.Errorf("invalid channel count %d", s.Channels)
	}

	switch s.Wave {
	case AudioWaveSine, AudioWaveTicks, AudioWaveSilence:
	case "":
		s.Wave = AudioWaveSine
	default:
		return fmt.Errorf("invalid wave %q", s.Wave)
	}

	if s.Frequency == 0 {
		s.Frequency = 440
	}

	return nil
}

// SamplesPerFrame returns the number of samples contained in each frame.
func (s *Audio) SamplesPerFrame() int {
	return s.SampleRate / 50
}

// NextFrame implements Source.
func (s *Audio) NextFrame() (*unit.Frame, error) {
	i := s.frameIndex
	s.frameIndex++

	samplesPerFrame := s.SamplesPerFrame()
	buf := make([]byte, samplesPerFrame*s.Channels*2)
	firstSample := i * int64(samplesPerFrame)

	for n := 0; n < samplesPerFrame; n++ {
		sample := s.sample(firstSample + int64(n))

		for c := 0; c < s.Channels; c++ {
			pos := (n*s.Channels + c) * 2
			buf[pos] = byte(sample >> 8)
			buf[pos+1] = byte(sample)
		}
	}

	return &unit.Frame{
		Timestamp: s.sampleTimestamp(firstSample),
		Payload:   buf,
	}, nil
}

// sampleTimestamp converts a sample index into a timestamp without
// accumulating rounding error. At sample rates that are not a multiple
// of 50, frames carry slightly less than FrameDuration of audio, and the
// timestamps must follow the samples, not the frame count.
func (s *Audio) sampleTimestamp(n int64) time.Duration {
	secs := n / int64(s.SampleRate)
	dec := n % int64(s.SampleRate)
	return time.Duration(secs)*time.Second +
		time.Duration(dec)*time.Second/time.Duration(s.SampleRate)
}

func (s *Audio) sample(n int64) int16 {
	switch s.Wave {
	case AudioWaveSine:
		return s.sine(n)

	case AudioWaveTicks:
		// a 100ms tone burst at the start of every second.
		if (n % int64(s.SampleRate)) < int64(s.SampleRate/10) {
			return s.sine(n)
		}
		return 0

	default:
		return 0
	}
}

func (s *Audio) sine(n int64) int16 {
	t := float64(n) / float64(s.SampleRate)
	return int16(0.3 * math.MaxInt16 * math.Sin(2*math.Pi*float64(s.Frequency)*t))
}
