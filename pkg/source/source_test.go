package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVideoValidate(t *testing.T) {
	for _, ca := range []struct {
		name string
		s    Video
		err  string
	}{
		{
			"bad resolution",
			Video{Width: 0, Height: 480, FPS: 30},
			"invalid resolution 0x480",
		},
		{
			"bad frame rate",
			Video{Width: 640, Height: 480},
			"invalid frame rate 0",
		},
		{
			"bad pattern",
			Video{Width: 640, Height: 480, FPS: 30, Pattern: "plasma"},
			"invalid pattern \"plasma\"",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			require.EqualError(t, ca.s.Initialize(), ca.err)
		})
	}
}

func TestVideoTimestamps(t *testing.T) {
	s := &Video{Width: 64, Height: 48, FPS: 30, Pattern: VideoPatternBall}
	require.NoError(t, s.Initialize())

	var prev time.Duration = -1
	for i := 0; i < 90; i++ {
		f, err := s.NextFrame()
		require.NoError(t, err)
		require.Greater(t, f.Timestamp, prev)
		require.Equal(t, time.Duration(i)*time.Second/30, f.Timestamp)
		require.Len(t, f.Payload, 64*48)
		prev = f.Timestamp
	}
}

func TestVideoDeterminism(t *testing.T) {
	gen := func() [][]byte {
		s := &Video{Width: 64, Height: 48, FPS: 30, Pattern: VideoPatternCheckers}
		require.NoError(t, s.Initialize())

		var frames [][]byte
		for i := 0; i < 10; i++ {
			f, err := s.NextFrame()
			require.NoError(t, err)
			frames = append(frames, f.Payload)
		}
		return frames
	}

	require.Equal(t, gen(), gen())
}

func TestAudioFrames(t *testing.T) {
	s := &Audio{SampleRate: 8000, Wave: AudioWaveSine, Frequency: 440}
	require.NoError(t, s.Initialize())

	f, err := s.NextFrame()
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), f.Timestamp)
	require.Len(t, f.Payload, 160*2) // 20ms of 8kHz mono 16-bit

	f, err = s.NextFrame()
	require.NoError(t, err)
	require.Equal(t, 20*time.Millisecond, f.Timestamp)
}

func TestAudioOddSampleRate(t *testing.T) {
	s := &Audio{SampleRate: 11025, Wave: AudioWaveSine}
	require.NoError(t, s.Initialize())
	require.Equal(t, 220, s.SamplesPerFrame())

	// timestamps track the emitted samples, not the nominal frame duration.
	for i := 0; i < 100; i++ {
		f, err := s.NextFrame()
		require.NoError(t, err)
		require.Len(t, f.Payload, 220*2)

		samples := int64(i) * 220
		expected := time.Duration(samples/11025)*time.Second +
			time.Duration(samples%11025)*time.Second/11025
		require.Equal(t, expected, f.Timestamp)
	}
}

func TestAudioTicks(t *testing.T) {
	s := &Audio{SampleRate: 8000, Wave: AudioWaveTicks}
	require.NoError(t, s.Initialize())

	// first 100ms (5 frames) carry the tone, the following 900ms are silent.
	for i := 0; i < 50; i++ {
		f, err := s.NextFrame()
		require.NoError(t, err)

		silent := true
		for _, b := range f.Payload {
			if b != 0 {
				silent = false
				break
			}
		}

		if i < 5 {
			require.False(t, silent, "frame %d", i)
		} else if i >= 6 {
			require.True(t, silent, "frame %d", i)
		}
	}
}
