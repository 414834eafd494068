package rtspcore

import (
	"sync"
	"time"

	"github.com/pion/rtp"
	"go.uber.org/zap"

	"github.com/mediamesh/rtspcore/pkg/description"
	"github.com/mediamesh/rtspcore/pkg/encoder"
	"github.com/mediamesh/rtspcore/pkg/liberrors"
	"github.com/mediamesh/rtspcore/pkg/payload"
	"github.com/mediamesh/rtspcore/pkg/source"
)

const workerQueueSize = 64

// pipelineMedia is one source → encoder → payloader chain.
// Its state is touched only by the pipeline's tick context (the dispatch
// loop, or the pipeline worker when encoding is offloaded).
type pipelineMedia struct {
	index    int
	media    *description.Media
	src      source.Source
	enc      encoder.Encoder
	pay      payload.Payloader
	interval time.Duration
	nextAt   time.Time
}

// pipeline is a running instance of a stream: one chain per media, fanned
// out to the attached sessions. Shared entries have at most one pipeline;
// non-shared entries get one per session.
type pipeline struct {
	s         *Server
	entry     *StreamEntry
	log       *zap.Logger
	keepAlive bool
	worker    *asyncProcessor // nil when encoding runs on the dispatch loop

	mutex    sync.Mutex
	medias   []*pipelineMedia
	sessions map[*ServerSession]struct{}
	active   bool
	failed   error
}

func newPipeline(s *Server, entry *StreamEntry) (*pipeline, error) {
	p := &pipeline{
		s:         s,
		entry:     entry,
		log:       s.Log.Named("pipeline").With(zap.String("path", entry.Path)),
		keepAlive: entry.Shared && s.Conf.Eager,
		sessions:  make(map[*ServerSession]struct{}),
	}

	for i, media := range entry.Desc.Medias {
		pm, err := p.buildMedia(i, media)
		if err != nil {
			return nil, err
		}
		p.medias = append(p.medias, pm)
	}

	if s.Conf.OffloadEncoding {
		p.worker = newAsyncProcessor(workerQueueSize)
		p.worker.start()
	}

	return p, nil
}

func (p *pipeline) buildMedia(index int, media *description.Media) (*pipelineMedia, error) {
	pm := &pipelineMedia{
		index: index,
		media: media,
	}

	sc := p.entry.conf

	switch media.Type {
	case description.MediaTypeVideo:
		src := &source.Video{
			Width:   sc.Video.Width,
			Height:  sc.Video.Height,
			FPS:     sc.Video.FPS,
			Pattern: source.VideoPattern(sc.Video.Pattern),
		}
		err := src.Initialize()
		if err != nil {
			return nil, liberrors.ErrSourceUnavailable{Path: p.entry.Path, Wrapped: err}
		}
		pm.src = src
		pm.interval = time.Second / time.Duration(src.FPS)

		pm.enc, err = encoder.New(encoder.Config{
			Codec:            media.Codec,
			Width:            sc.Video.Width,
			Height:           sc.Video.Height,
			FPS:              sc.Video.FPS,
			BitRate:          sc.Video.BitRate,
			KeyframeInterval: sc.Video.KeyframeInterval,
			RepeatParams:     sc.Video.RepeatParams,
		})
		if err != nil {
			return nil, liberrors.ErrEncoderInit{Codec: media.Codec, Wrapped: err}
		}

	default: // audio
		src := &source.Audio{
			SampleRate: sc.Audio.SampleRate,
			Channels:   sc.Audio.Channels,
			Wave:       source.AudioWave(sc.Audio.Wave),
			Frequency:  sc.Audio.Frequency,
		}
		err := src.Initialize()
		if err != nil {
			return nil, liberrors.ErrSourceUnavailable{Path: p.entry.Path, Wrapped: err}
		}
		pm.src = src
		pm.interval = source.FrameDuration

		pm.enc, err = encoder.New(encoder.Config{Codec: media.Codec})
		if err != nil {
			return nil, liberrors.ErrEncoderInit{Codec: media.Codec, Wrapped: err}
		}
	}

	var err error
	pm.pay, err = payload.New(payload.Config{
		Codec:          media.Codec,
		PayloadType:    media.PayloadType,
		ClockRate:      media.ClockRate,
		PayloadMaxSize: p.s.Conf.PayloadMaxSize,
	})
	if err != nil {
		return nil, liberrors.ErrEncoderInit{Codec: media.Codec, Wrapped: err}
	}

	return pm, nil
}

func (p *pipeline) attach(ss *ServerSession) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.sessions[ss] = struct{}{}

	if !p.active {
		p.activateLocked(time.Now())
		p.s.recheckDeadlines()
	}
}

func (p *pipeline) detach(ss *ServerSession) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	delete(p.sessions, ss)

	if len(p.sessions) == 0 && !p.keepAlive {
		p.active = false
	}
}

func (p *pipeline) activate() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.active {
		p.activateLocked(time.Now())
	}
}

func (p *pipeline) activateLocked(now time.Time) {
	p.active = true
	for _, pm := range p.medias {
		pm.nextAt = now
	}
	p.log.Info("pipeline started")
}

func (p *pipeline) close() {
	if p.worker != nil {
		p.worker.stop()
	}
}

// nextDeadline returns the wall-clock time of the next frame tick.
func (p *pipeline) nextDeadline() (time.Time, bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.active || p.failed != nil {
		return time.Time{}, false
	}

	var min time.Time
	for _, pm := range p.medias {
		if min.IsZero() || pm.nextAt.Before(min) {
			min = pm.nextAt
		}
	}
	return min, true
}

// tick produces every frame whose deadline has elapsed. When the loop
// falls behind, one frame per elapsed interval is produced, so frame
// counts stay aligned with wall time.
func (p *pipeline) tick(now time.Time) {
	p.mutex.Lock()

	if !p.active || p.failed != nil {
		p.mutex.Unlock()
		return
	}

	type dueMedia struct {
		pm    *pipelineMedia
		count int
	}
	var due []dueMedia

	for _, pm := range p.medias {
		count := 0
		for !pm.nextAt.After(now) {
			pm.nextAt = pm.nextAt.Add(pm.interval)
			count++
		}
		if count > 0 {
			due = append(due, dueMedia{pm, count})
		}
	}

	p.mutex.Unlock()

	for _, d := range due {
		for i := 0; i < d.count; i++ {
			if p.worker != nil {
				pm := d.pm
				p.worker.push(func() {
					p.step(pm)
				})
			} else {
				p.step(d.pm)
			}
		}
	}
}

// step moves one frame through the chain and fans the resulting packets
// out to every attached session.
func (p *pipeline) step(pm *pipelineMedia) {
	frame, err := pm.src.NextFrame()
	if err != nil {
		p.fail(liberrors.ErrSourceUnavailable{Path: p.entry.Path, Wrapped: err})
		return
	}

	units, err := pm.enc.Encode(frame)
	if err != nil {
		p.fail(liberrors.ErrEncoderInit{Codec: pm.media.Codec, Wrapped: err})
		return
	}

	for _, u := range units {
		var pkts []*rtp.Packet
		pkts, err = pm.pay.Payload(u)
		if err != nil {
			p.fail(liberrors.ErrEncoderInit{Codec: pm.media.Codec, Wrapped: err})
			return
		}

		p.fanout(pm.index, pkts)
	}
}

func (p *pipeline) fanout(mediaIndex int, pkts []*rtp.Packet) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for ss := range p.sessions {
		for _, pkt := range pkts {
			ss.enqueue(mediaIndex, pkt)
		}
	}
}

// fail marks the pipeline as broken and asks the server to tear down the
// dependent sessions. Other streams keep running.
// The teardown must run on another routine: fail is reached from step(),
// i.e. from the dispatch loop or from the pipeline worker, and the
// teardown both stops that worker and waits for session writers to drain.
func (p *pipeline) fail(err error) {
	p.mutex.Lock()
	if p.failed != nil {
		p.mutex.Unlock()
		return
	}
	p.failed = err
	p.active = false
	sessions := make([]*ServerSession, 0, len(p.sessions))
	for ss := range p.sessions {
		sessions = append(sessions, ss)
	}
	p.mutex.Unlock()

	p.log.Error("pipeline failed", zap.Error(err))
	go p.s.pipelineFailed(p, sessions, err)
}
