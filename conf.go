package rtspcore

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mediamesh/rtspcore/pkg/description"
	"github.com/mediamesh/rtspcore/pkg/liberrors"
)

// rtpClockRate returns the RTP clock rate of a codec.
// G722 advertises 8000 regardless of its 16 kHz sampling (RFC 3551,
// section 4.5.2).
func rtpClockRate(codec string, sampleRate int) int {
	switch codec {
	case description.CodecH264, description.CodecVP8:
		return 90000
	case description.CodecG722:
		return 8000
	case description.CodecOpus:
		return 48000
	default:
		return sampleRate
	}
}

func defaultPayloadType(codec string) uint8 {
	switch codec {
	case description.CodecPCMU:
		return 0
	case description.CodecPCMA:
		return 8
	case description.CodecG722:
		return 9
	case description.CodecH264:
		return 96
	case description.CodecVP8:
		return 97
	default:
		return 111
	}
}

// VideoConf is the configuration of a video media.
type VideoConf struct {
	Codec            string `yaml:"codec"`
	Width            int    `yaml:"width"`
	Height           int    `yaml:"height"`
	FPS              int    `yaml:"fps"`
	Pattern          string `yaml:"pattern"`
	BitRate          int    `yaml:"bitrate"`
	KeyframeInterval int    `yaml:"keyframe_interval"`
	RepeatParams     bool   `yaml:"repeat_params"`
	PayloadType      *uint8 `yaml:"payload_type"`
}

// AudioConf is the configuration of an audio media.
type AudioConf struct {
	Codec       string `yaml:"codec"`
	SampleRate  int    `yaml:"sample_rate"`
	Channels    int    `yaml:"channels"`
	Wave        string `yaml:"wave"`
	Frequency   int    `yaml:"frequency"`
	PayloadType *uint8 `yaml:"payload_type"`
}

// StreamConf is the configuration of a stream.
type StreamConf struct {
	// mount path of the stream.
	Path string `yaml:"path"`

	// whether one upstream pipeline is fanned out to all sessions.
	// It defaults to true.
	Shared *bool `yaml:"shared"`

	Video *VideoConf `yaml:"video"`
	Audio *AudioConf `yaml:"audio"`
}

// IsShared reports whether the stream pipeline is shared across sessions.
func (sc *StreamConf) IsShared() bool {
	return sc.Shared == nil || *sc.Shared
}

// Conf is the server configuration. It is read once at startup; there is
// no runtime reconfiguration.
type Conf struct {
	// start shared pipelines at startup instead of on first session.
	Eager bool `yaml:"eager"`

	// run encoding on a per-pipeline worker instead of the dispatch loop.
	OffloadEncoding bool `yaml:"offload_encoding"`

	// size of each session's output queue. Must be a power of two.
	// It defaults to 256.
	WriteQueueSize int `yaml:"write_queue_size"`

	// maximum size of outgoing RTP payloads.
	// It defaults to 1460.
	PayloadMaxSize int `yaml:"payload_max_size"`

	// interval between RTCP sender reports.
	// It defaults to 5s.
	SenderReportPeriod time.Duration `yaml:"sender_report_period"`

	// configured streams.
	Streams []*StreamConf `yaml:"streams"`
}

// LoadConf reads and validates a configuration file.
func LoadConf(path string) (*Conf, error) {
	byts, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var conf Conf
	err = yaml.Unmarshal(byts, &conf)
	if err != nil {
		return nil, err
	}

	err = conf.Validate()
	if err != nil {
		return nil, err
	}

	return &conf, nil
}

var supportedVideoCodecs = map[string]struct{}{
	description.CodecH264: {},
	description.CodecVP8:  {},
}

var supportedAudioCodecs = map[string]struct{}{
	description.CodecPCMU: {},
	description.CodecPCMA: {},
	description.CodecG722: {},
	description.CodecOpus: {},
}

// Validate checks the configuration and fills defaults.
func (c *Conf) Validate() error {
	if c.WriteQueueSize == 0 {
		c.WriteQueueSize = 256
	}
	if (c.WriteQueueSize & (c.WriteQueueSize - 1)) != 0 {
		return liberrors.ErrConfInvalid{
			Field:   "write_queue_size",
			Message: "must be a power of two",
		}
	}

	if c.PayloadMaxSize == 0 {
		c.PayloadMaxSize = 1460
	}

	if c.SenderReportPeriod == 0 {
		c.SenderReportPeriod = 5 * time.Second
	}

	if len(c.Streams) == 0 {
		return liberrors.ErrConfInvalid{
			Field:   "streams",
			Message: "at least one stream must be configured",
		}
	}

	paths := make(map[string]struct{})

	for _, stream := range c.Streams {
		err := stream.validate()
		if err != nil {
			return err
		}

		if _, ok := paths[stream.Path]; ok {
			return liberrors.ErrConfDuplicatePath{Path: stream.Path}
		}
		paths[stream.Path] = struct{}{}
	}

	return nil
}

func (sc *StreamConf) validate() error {
	if sc.Path == "" || !strings.HasPrefix(sc.Path, "/") {
		return liberrors.ErrConfInvalid{
			Field:   "path",
			Message: "must start with /",
		}
	}

	if sc.Video == nil && sc.Audio == nil {
		return liberrors.ErrConfInvalid{
			Field:   "streams",
			Message: "stream " + sc.Path + " has no medias",
		}
	}

	if sc.Video != nil {
		if sc.Video.Codec == "" {
			sc.Video.Codec = description.CodecH264
		}
		if _, ok := supportedVideoCodecs[sc.Video.Codec]; !ok {
			return liberrors.ErrConfUnsupportedCodec{Path: sc.Path, Codec: sc.Video.Codec}
		}
	}

	if sc.Audio != nil {
		if sc.Audio.Codec == "" {
			sc.Audio.Codec = description.CodecPCMU
		}
		if _, ok := supportedAudioCodecs[sc.Audio.Codec]; !ok {
			return liberrors.ErrConfUnsupportedCodec{Path: sc.Path, Codec: sc.Audio.Codec}
		}
		if sc.Audio.SampleRate == 0 {
			sc.Audio.SampleRate = 8000
		}
	}

	return nil
}
