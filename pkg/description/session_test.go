package description

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionValidate(t *testing.T) {
	for _, ca := range []struct {
		name string
		d    Session
		err  string
	}{
		{
			"no medias",
			Session{},
			"no medias provided",
		},
		{
			"bad type",
			Session{Medias: []*Media{{
				Type:      "data",
				Codec:     CodecH264,
				ClockRate: 90000,
			}}},
			"media 1 is invalid: invalid media type \"data\"",
		},
		{
			"bad clock rate",
			Session{Medias: []*Media{{
				Type:  MediaTypeAudio,
				Codec: CodecPCMU,
			}}},
			"media 1 is invalid: invalid clock rate 0",
		},
	} {
		t.Run(ca.name, func(t *testing.T) {
			err := ca.d.Validate()
			require.EqualError(t, err, ca.err)
		})
	}
}

func TestSessionValidateDefaults(t *testing.T) {
	d := Session{Medias: []*Media{
		{
			Type:        MediaTypeVideo,
			Codec:       CodecH264,
			ClockRate:   90000,
			PayloadType: 96,
		},
		{
			Type:        MediaTypeAudio,
			Codec:       CodecPCMU,
			ClockRate:   8000,
			PayloadType: 0,
		},
	}}

	err := d.Validate()
	require.NoError(t, err)
	require.Equal(t, "trackID=0", d.Medias[0].Control)
	require.Equal(t, "trackID=1", d.Medias[1].Control)
	require.Equal(t, 1, d.Medias[1].Channels)
}

func TestSessionMarshal(t *testing.T) {
	d := Session{
		Title: "Stream",
		Medias: []*Media{
			{
				Type:        MediaTypeVideo,
				Codec:       CodecH264,
				ClockRate:   90000,
				PayloadType: 96,
				FMTP: map[string]string{
					"packetization-mode": "1",
				},
			},
			{
				Type:        MediaTypeAudio,
				Codec:       CodecPCMA,
				ClockRate:   8000,
				PayloadType: 8,
			},
		},
	}
	require.NoError(t, d.Validate())

	byts, err := d.Marshal()
	require.NoError(t, err)

	s := string(byts)
	require.Contains(t, s, "s=Stream")
	require.Contains(t, s, "m=video 0 RTP/AVP 96")
	require.Contains(t, s, "a=rtpmap:96 H264/90000")
	require.Contains(t, s, "a=fmtp:96 packetization-mode=1")
	require.Contains(t, s, "m=audio 0 RTP/AVP 8")
	require.Contains(t, s, "a=rtpmap:8 PCMA/8000")
}
