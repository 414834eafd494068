package rtspcore

import (
	"github.com/mediamesh/rtspcore/pkg/ringbuffer"
)

// asyncProcessor runs closures on a dedicated goroutine, in submission
// order. Each pipeline gets one, so CPU-bound encoding never blocks the
// dispatch loop while per-pipeline output ordering is preserved.
type asyncProcessor struct {
	buffer *ringbuffer.RingBuffer[func()]
	done   chan struct{}
}

func newAsyncProcessor(queueSize int) *asyncProcessor {
	buffer, _ := ringbuffer.New[func()](uint64(queueSize))
	return &asyncProcessor{
		buffer: buffer,
		done:   make(chan struct{}),
	}
}

func (w *asyncProcessor) start() {
	go w.run()
}

func (w *asyncProcessor) stop() {
	w.buffer.Close()
	<-w.done
}

func (w *asyncProcessor) run() {
	defer close(w.done)

	for {
		cb, ok := w.buffer.Pull()
		if !ok {
			return
		}
		cb()
	}
}

func (w *asyncProcessor) push(cb func()) {
	w.buffer.Push(cb)
}
