// Package rtspcore implements the serving core of a RTSP media server:
// synthetic frame sources, per-stream encoder and payloader state, session
// management with multi-session fan-out, and a single dispatch loop
// driving frame production.
//
// The RTSP wire protocol itself (verb parsing, SDP transport, sockets) is
// left to an external collaborator, which drives this core through
// Describe, Setup, Play and Teardown and receives packets through the
// Transport interface.
package rtspcore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mediamesh/rtspcore/pkg/description"
	"github.com/mediamesh/rtspcore/pkg/liberrors"
)

// Server is a RTSP media-serving core.
//
// Construct it with a Conf, call Start, then drive it from the transport
// collaborator. There is no process-wide state: multiple servers can
// coexist in one process.
type Server struct {
	// server configuration (required).
	Conf *Conf

	// logger (optional). It defaults to a no-op logger.
	Log *zap.Logger

	ctx       context.Context
	ctxCancel context.CancelFunc
	group     *errgroup.Group
	registry  *streamRegistry
	chRecheck chan struct{}

	mutex     sync.Mutex
	closed    bool
	shared    map[string]*pipeline // path → shared pipeline
	exclusive map[*pipeline]struct{}
	sessions  map[string]*ServerSession
	failures  map[string]error // path → reason the stream went down
}

// Start validates the configuration, registers the streams and starts the
// dispatch loop. Configuration errors are fatal; per-stream failures
// afterwards are not.
func (s *Server) Start() error {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}

	err := s.Conf.Validate()
	if err != nil {
		return err
	}

	s.registry, err = newStreamRegistry(s.Conf)
	if err != nil {
		return err
	}

	s.shared = make(map[string]*pipeline)
	s.exclusive = make(map[*pipeline]struct{})
	s.sessions = make(map[string]*ServerSession)
	s.failures = make(map[string]error)
	s.chRecheck = make(chan struct{}, 1)

	s.ctx, s.ctxCancel = context.WithCancel(context.Background())
	s.group, _ = errgroup.WithContext(s.ctx)

	if s.Conf.Eager {
		for path, entry := range s.registry.entries {
			if !entry.Shared {
				continue
			}

			pipe, err := newPipeline(s, entry)
			if err != nil {
				// scoped to this stream; the server keeps serving
				// the other mounts.
				s.Log.Error("stream failed to start",
					zap.String("path", path), zap.Error(err))
				s.failures[path] = err
				continue
			}

			pipe.activate()
			s.shared[path] = pipe
		}
	}

	s.group.Go(s.run)

	s.Log.Info("server started", zap.Int("streams", len(s.registry.entries)))
	return nil
}

// Close tears down every session, stops every pipeline and waits for the
// dispatch loop to return.
func (s *Server) Close() error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		return nil
	}
	s.closed = true

	sessions := make([]*ServerSession, 0, len(s.sessions))
	for _, ss := range s.sessions {
		sessions = append(sessions, ss)
	}
	s.mutex.Unlock()

	for _, ss := range sessions {
		ss.teardown(liberrors.ErrServerClosed{}) //nolint:errcheck
	}

	s.ctxCancel()
	s.group.Wait() //nolint:errcheck

	s.mutex.Lock()
	for _, pipe := range s.shared {
		pipe.close()
	}
	for pipe := range s.exclusive {
		pipe.close()
	}
	s.mutex.Unlock()

	s.Log.Info("server closed")
	return nil
}

// Describe returns the description of the stream at the given path.
func (s *Server) Describe(path string) (*description.Session, error) {
	entry, err := s.registry.lookup(path)
	if err != nil {
		return nil, err
	}
	return entry.Desc, nil
}

// Setup creates a session bound to the stream at the given path.
// The session starts delivering packets after Play.
func (s *Server) Setup(path string, transport Transport) (*ServerSession, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return nil, liberrors.ErrServerClosed{}
	}

	entry, err := s.registry.lookup(path)
	if err != nil {
		return nil, err
	}

	if err, ok := s.failures[path]; ok {
		return nil, err
	}

	ss := newServerSession(s, transport)

	var pipe *pipeline
	if entry.Shared {
		pipe, err = s.sharedPipelineLocked(entry)
		if err != nil {
			return nil, err
		}
	} else {
		if s.entryInUseLocked(entry) {
			return nil, liberrors.ErrStreamInUse{Path: path}
		}

		pipe, err = newPipeline(s, entry)
		if err != nil {
			return nil, err
		}
		s.exclusive[pipe] = struct{}{}
	}

	err = ss.setup(entry, pipe)
	if err != nil {
		return nil, err
	}

	s.sessions[ss.id] = ss
	return ss, nil
}

// Play starts packet delivery on the session with the given id.
func (s *Server) Play(sessionID string) error {
	ss, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return ss.Play()
}

// Teardown destroys the session with the given id.
func (s *Server) Teardown(sessionID string) error {
	ss, err := s.session(sessionID)
	if err != nil {
		return err
	}
	return ss.Teardown()
}

func (s *Server) session(id string) (*ServerSession, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ss, ok := s.sessions[id]
	if !ok {
		return nil, liberrors.ErrSessionNotFound{ID: id}
	}
	return ss, nil
}

func (s *Server) sharedPipelineLocked(entry *StreamEntry) (*pipeline, error) {
	if pipe, ok := s.shared[entry.Path]; ok {
		return pipe, nil
	}

	pipe, err := newPipeline(s, entry)
	if err != nil {
		return nil, err
	}

	s.shared[entry.Path] = pipe
	return pipe, nil
}

func (s *Server) entryInUseLocked(entry *StreamEntry) bool {
	for _, other := range s.sessions {
		if other.entry == entry && other.State() != ServerSessionStateTornDown {
			return true
		}
	}
	return false
}

func (s *Server) removeSession(ss *ServerSession) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.sessions, ss.id)

	if ss.pipe != nil && !ss.pipe.entry.Shared {
		if _, ok := s.exclusive[ss.pipe]; ok {
			delete(s.exclusive, ss.pipe)
			ss.pipe.close()
		}
	}
}

// pipelineFailed is invoked on its own routine when a pipeline's source or
// encoder broke: the dependent sessions are torn down with the reason, the
// mount is marked down, and the rest of the server keeps going.
func (s *Server) pipelineFailed(p *pipeline, sessions []*ServerSession, reason error) {
	s.mutex.Lock()
	s.failures[p.entry.Path] = reason
	if p.entry.Shared {
		delete(s.shared, p.entry.Path)
	}
	s.mutex.Unlock()

	for _, ss := range sessions {
		ss.teardown(reason) //nolint:errcheck
	}

	p.close()
}

// recheckDeadlines wakes the dispatch loop so that it recomputes the next
// frame deadline after the pipeline set changed.
func (s *Server) recheckDeadlines() {
	select {
	case s.chRecheck <- struct{}{}:
	default:
	}
}

func (s *Server) activePipelines() []*pipeline {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ret := make([]*pipeline, 0, len(s.shared)+len(s.exclusive))
	for _, pipe := range s.shared {
		ret = append(ret, pipe)
	}
	for pipe := range s.exclusive {
		ret = append(ret, pipe)
	}
	return ret
}

// run is the dispatch loop: the only place that blocks. It sleeps until
// the earliest frame deadline among the active pipelines, then lets each
// due pipeline produce.
func (s *Server) run() error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		var deadline time.Time
		for _, pipe := range s.activePipelines() {
			if d, ok := pipe.nextDeadline(); ok {
				if deadline.IsZero() || d.Before(deadline) {
					deadline = d
				}
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if !deadline.IsZero() {
			timer.Reset(time.Until(deadline))
		} else {
			timer.Reset(time.Hour)
		}

		select {
		case <-s.ctx.Done():
			return nil

		case <-s.chRecheck:

		case <-timer.C:
			now := time.Now()
			for _, pipe := range s.activePipelines() {
				pipe.tick(now)
			}
		}
	}
}
