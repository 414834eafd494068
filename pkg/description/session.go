package description

import (
	"fmt"
	"strconv"

	psdp "github.com/pion/sdp/v3"
)

// Session is the description of a stream: the list of medias served under
// one mount path.
type Session struct {
	// Title of the stream (optional).
	Title string

	// Medias contained into the stream.
	Medias []*Media
}

// Validate checks the description for consistency and fills defaults.
func (d *Session) Validate() error {
	if len(d.Medias) == 0 {
		return fmt.Errorf("no medias provided")
	}

	for i, media := range d.Medias {
		err := media.validate()
		if err != nil {
			return fmt.Errorf("media %d is invalid: %w", i+1, err)
		}

		if media.Control == "" {
			media.Control = "trackID=" + strconv.Itoa(i)
		}
	}

	return nil
}

// Marshal encodes the description in SDP format.
func (d Session) Marshal() ([]byte, error) {
	var sessionName psdp.SessionName
	if d.Title != "" {
		sessionName = psdp.SessionName(d.Title)
	} else {
		// RFC 4566: If a session has no meaningful name, the
		// value "s= " SHOULD be used (i.e., a single space as the session name).
		sessionName = psdp.SessionName(" ")
	}

	sout := &psdp.SessionDescription{
		SessionName: sessionName,
		Origin: psdp.Origin{
			Username:       "-",
			NetworkType:    "IN",
			AddressType:    "IP4",
			UnicastAddress: "127.0.0.1",
		},
		ConnectionInformation: &psdp.ConnectionInformation{
			NetworkType: "IN",
			AddressType: "IP4",
			Address:     &psdp.Address{Address: "0.0.0.0"},
		},
		TimeDescriptions: []psdp.TimeDescription{
			{Timing: psdp.Timing{StartTime: 0, StopTime: 0}},
		},
		MediaDescriptions: make([]*psdp.MediaDescription, len(d.Medias)),
	}

	for i, media := range d.Medias {
		sout.MediaDescriptions[i] = media.Marshal()
	}

	return sout.Marshal()
}
