package rtspcore

import (
	"encoding/base64"

	"github.com/mediamesh/rtspcore/pkg/description"
	"github.com/mediamesh/rtspcore/pkg/encoder"
	"github.com/mediamesh/rtspcore/pkg/liberrors"
)

// StreamEntry binds a mount path to the medias served under it.
// Entries are created before the server starts and are immutable
// afterwards.
type StreamEntry struct {
	// mount path.
	Path string

	// stream description.
	Desc *description.Session

	// whether one upstream pipeline is fanned out to all sessions.
	Shared bool

	conf *StreamConf
}

func h264FMTP() map[string]string {
	sps, pps := encoder.H264Params()
	return map[string]string{
		"packetization-mode": "1",
		"sprop-parameter-sets": base64.StdEncoding.EncodeToString(sps) + "," +
			base64.StdEncoding.EncodeToString(pps),
	}
}

func newStreamEntry(sc *StreamConf) (*StreamEntry, error) {
	desc := &description.Session{}

	if sc.Video != nil {
		media := &description.Media{
			Type:        description.MediaTypeVideo,
			Codec:       sc.Video.Codec,
			ClockRate:   rtpClockRate(sc.Video.Codec, 0),
			PayloadType: defaultPayloadType(sc.Video.Codec),
		}
		if sc.Video.PayloadType != nil {
			media.PayloadType = *sc.Video.PayloadType
		}
		if sc.Video.Codec == description.CodecH264 {
			media.FMTP = h264FMTP()
		}
		desc.Medias = append(desc.Medias, media)
	}

	if sc.Audio != nil {
		media := &description.Media{
			Type:        description.MediaTypeAudio,
			Codec:       sc.Audio.Codec,
			ClockRate:   rtpClockRate(sc.Audio.Codec, sc.Audio.SampleRate),
			PayloadType: defaultPayloadType(sc.Audio.Codec),
			Channels:    sc.Audio.Channels,
		}
		if sc.Audio.PayloadType != nil {
			media.PayloadType = *sc.Audio.PayloadType
		}
		desc.Medias = append(desc.Medias, media)
	}

	err := desc.Validate()
	if err != nil {
		return nil, liberrors.ErrConfInvalid{Field: "streams", Message: err.Error()}
	}

	return &StreamEntry{
		Path:   sc.Path,
		Desc:   desc,
		Shared: sc.IsShared(),
		conf:   sc,
	}, nil
}

// streamRegistry maps mount paths to stream entries. It is filled before
// the dispatch loop starts and read-only afterwards, so lookups need no
// locking.
type streamRegistry struct {
	entries map[string]*StreamEntry
}

func newStreamRegistry(conf *Conf) (*streamRegistry, error) {
	r := &streamRegistry{
		entries: make(map[string]*StreamEntry),
	}

	for _, sc := range conf.Streams {
		if _, ok := r.entries[sc.Path]; ok {
			return nil, liberrors.ErrConfDuplicatePath{Path: sc.Path}
		}

		entry, err := newStreamEntry(sc)
		if err != nil {
			return nil, err
		}

		r.entries[sc.Path] = entry
	}

	return r, nil
}

func (r *streamRegistry) lookup(path string) (*StreamEntry, error) {
	entry, ok := r.entries[path]
	if !ok {
		return nil, liberrors.ErrStreamNotFound{Path: path}
	}
	return entry, nil
}
