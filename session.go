package rtspcore

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"go.uber.org/zap"

	"github.com/mediamesh/rtspcore/pkg/liberrors"
	"github.com/mediamesh/rtspcore/pkg/ringbuffer"
	"github.com/mediamesh/rtspcore/pkg/rtcpsender"
)

// how long a teardown waits for the writer to drain before releasing the
// transport anyway.
const teardownDrainTimeout = 1 * time.Second

// ServerSessionState is a state of a ServerSession.
type ServerSessionState int

// states.
const (
	ServerSessionStateInitial ServerSessionState = iota
	ServerSessionStateReady
	ServerSessionStatePlaying
	ServerSessionStateTornDown
)

// String implements fmt.Stringer.
func (s ServerSessionState) String() string {
	switch s {
	case ServerSessionStateInitial:
		return "initial"
	case ServerSessionStateReady:
		return "ready"
	case ServerSessionStatePlaying:
		return "playing"
	case ServerSessionStateTornDown:
		return "tornDown"
	}
	return "unknown"
}

type sessionItem struct {
	mediaIndex int
	pkt        *rtp.Packet
}

// ServerSession is a client session bound to one stream entry.
//
// Each playing session owns a bounded output queue and a writer goroutine;
// when its transport stalls, the queue overwrites its oldest packets and
// the other sessions of the same stream are unaffected.
type ServerSession struct {
	s         *Server
	id        string
	transport Transport
	log       *zap.Logger

	mutex   sync.Mutex
	state   ServerSessionState
	entry   *StreamEntry
	pipe    *pipeline
	queue   *ringbuffer.RingBuffer[sessionItem]
	senders []*rtcpsender.Sender

	writerDone chan struct{}
}

func newServerSession(s *Server, transport Transport) *ServerSession {
	id := uuid.NewString()
	return &ServerSession{
		s:         s,
		id:        id,
		transport: transport,
		log:       s.Log.Named("session").With(zap.String("id", id)),
		state:     ServerSessionStateInitial,
	}
}

// ID returns the session identifier.
func (ss *ServerSession) ID() string {
	return ss.id
}

// State returns the state of the session.
func (ss *ServerSession) State() ServerSessionState {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	return ss.state
}

func (ss *ServerSession) checkState(allowed map[ServerSessionState]struct{}) error {
	if _, ok := allowed[ss.state]; ok {
		return nil
	}

	allowedList := make([]fmt.Stringer, len(allowed))
	i := 0
	for a := range allowed {
		allowedList[i] = a
		i++
	}

	return liberrors.ErrInvalidState{AllowedList: allowedList, State: ss.state}
}

// setup binds the session to a stream entry and allocates its pipeline.
func (ss *ServerSession) setup(entry *StreamEntry, pipe *pipeline) error {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	err := ss.checkState(map[ServerSessionState]struct{}{
		ServerSessionStateInitial: {},
	})
	if err != nil {
		return err
	}

	ss.entry = entry
	ss.pipe = pipe
	ss.state = ServerSessionStateReady
	ss.log.Info("session ready", zap.String("path", entry.Path))
	return nil
}

// Play starts packet delivery.
func (ss *ServerSession) Play() error {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	err := ss.checkState(map[ServerSessionState]struct{}{
		ServerSessionStateReady: {},
	})
	if err != nil {
		return err
	}

	ss.queue, _ = ringbuffer.New[sessionItem](uint64(ss.s.Conf.WriteQueueSize))

	for i, media := range ss.entry.Desc.Medias {
		mediaIndex := i
		sender := &rtcpsender.Sender{
			ClockRate: media.ClockRate,
			Period:    ss.s.Conf.SenderReportPeriod,
			WritePacketRTCP: func(pkt rtcp.Packet) {
				ss.transport.WriteRTCP(mediaIndex, pkt) //nolint:errcheck
			},
		}
		sender.Initialize()
		ss.senders = append(ss.senders, sender)
	}

	ss.writerDone = make(chan struct{})
	go ss.runWriter()

	ss.pipe.attach(ss)
	ss.state = ServerSessionStatePlaying
	ss.log.Info("session playing", zap.String("path", ss.entry.Path))
	return nil
}

// Teardown destroys the session.
// Packets already handed to the transport are not retracted; the writer is
// given a grace period to drain before the transport is released.
func (ss *ServerSession) Teardown() error {
	return ss.teardown(nil)
}

func (ss *ServerSession) teardown(reason error) error {
	ss.mutex.Lock()

	err := ss.checkState(map[ServerSessionState]struct{}{
		ServerSessionStateInitial: {},
		ServerSessionStateReady:   {},
		ServerSessionStatePlaying: {},
	})
	if err != nil {
		ss.mutex.Unlock()
		return err
	}

	ss.state = ServerSessionStateTornDown
	pipe := ss.pipe
	queue := ss.queue
	senders := ss.senders
	writerDone := ss.writerDone
	ss.mutex.Unlock()

	if reason != nil {
		ss.log.Warn("session torn down", zap.Error(reason))
	} else {
		ss.log.Info("session torn down")
	}

	// stop incoming packets first, then let the writer drain.
	if pipe != nil {
		pipe.detach(ss)
	}

	for _, sender := range senders {
		sender.Close()
	}

	if queue != nil {
		queue.Close()
	}

	if writerDone != nil {
		select {
		case <-writerDone:
		case <-time.After(teardownDrainTimeout):
			ss.log.Warn("transport did not drain in time")
		}
	}

	ss.transport.Close() //nolint:errcheck

	ss.s.removeSession(ss)
	return nil
}

// enqueue hands a packet to the session queue.
// Called by the pipeline only while the session is attached, i.e. between
// Play() and teardown detach, when queue is guaranteed non-nil.
func (ss *ServerSession) enqueue(mediaIndex int, pkt *rtp.Packet) {
	ss.queue.Push(sessionItem{mediaIndex: mediaIndex, pkt: pkt})
}

func (ss *ServerSession) runWriter() {
	defer close(ss.writerDone)

	for {
		item, ok := ss.queue.Pull()
		if !ok {
			return
		}

		err := ss.transport.WriteRTP(item.mediaIndex, item.pkt)
		if err != nil {
			// the teardown must run on another routine, since it
			// waits for this one to return.
			go ss.teardown(liberrors.ErrTransportFailure{Wrapped: err}) //nolint:errcheck
			return
		}

		ss.senders[item.mediaIndex].ProcessPacket(item.pkt, time.Now())
	}
}
