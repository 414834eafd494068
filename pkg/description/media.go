// Package description contains objects to describe streams.
package description

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	psdp "github.com/pion/sdp/v3"
)

// MediaType is the type of a media stream.
type MediaType string

// media types.
const (
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// codec names.
const (
	CodecH264 = "H264"
	CodecVP8  = "VP8"
	CodecPCMU = "PCMU"
	CodecPCMA = "PCMA"
	CodecG722 = "G722"
	CodecOpus = "opus"
)

// Media describes a single media stream within a mount: its kind, codec,
// clock rate and payload type. It is immutable once the stream is
// registered.
type Media struct {
	// Media type.
	Type MediaType

	// Codec name, as it appears in the rtpmap attribute.
	Codec string

	// RTP clock rate. 90000 for video, the sample rate for audio.
	ClockRate int

	// RTP payload type.
	PayloadType uint8

	// audio channel count (optional). It defaults to 1 for audio medias.
	Channels int

	// additional format-specific parameters, encoded in the fmtp attribute.
	FMTP map[string]string

	// Control attribute.
	Control string
}

func (m *Media) validate() error {
	switch m.Type {
	case MediaTypeVideo, MediaTypeAudio:
	default:
		return fmt.Errorf("invalid media type %q", m.Type)
	}

	if m.Codec == "" {
		return fmt.Errorf("codec is missing")
	}

	if m.ClockRate <= 0 {
		return fmt.Errorf("invalid clock rate %d", m.ClockRate)
	}

	if m.Type == MediaTypeAudio && m.Channels == 0 {
		m.Channels = 1
	}

	return nil
}

// RTPMap returns the value of the rtpmap attribute of the media.
func (m Media) RTPMap() string {
	v := m.Codec + "/" + strconv.Itoa(m.ClockRate)
	if m.Type == MediaTypeAudio && m.Channels > 1 {
		v += "/" + strconv.Itoa(m.Channels)
	}
	return v
}

func sortedKeys(fmtp map[string]string) []string {
	keys := make([]string, len(fmtp))
	i := 0
	for key := range fmtp {
		keys[i] = key
		i++
	}
	sort.Strings(keys)
	return keys
}

// Marshal encodes the media in SDP format.
func (m Media) Marshal() *psdp.MediaDescription {
	typ := strconv.FormatUint(uint64(m.PayloadType), 10)

	md := &psdp.MediaDescription{
		MediaName: psdp.MediaName{
			Media:   string(m.Type),
			Protos:  []string{"RTP", "AVP"},
			Formats: []string{typ},
		},
	}

	md.Attributes = append(md.Attributes, psdp.Attribute{
		Key:   "control",
		Value: m.Control,
	})

	md.Attributes = append(md.Attributes, psdp.Attribute{
		Key:   "rtpmap",
		Value: typ + " " + m.RTPMap(),
	})

	if len(m.FMTP) != 0 {
		tmp := make([]string, len(m.FMTP))
		for i, key := range sortedKeys(m.FMTP) {
			tmp[i] = key + "=" + m.FMTP[key]
		}

		md.Attributes = append(md.Attributes, psdp.Attribute{
			Key:   "fmtp",
			Value: typ + " " + strings.Join(tmp, "; "),
		})
	}

	return md
}
