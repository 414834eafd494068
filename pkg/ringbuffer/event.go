package ringbuffer

// event is a level-triggered wakeup: a signal that happens while nobody is
// waiting is remembered and satisfies the next wait.
type event struct {
	ch chan struct{}
}

func newEvent() *event {
	return &event{
		ch: make(chan struct{}, 1),
	}
}

func (e *event) signal() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

func (e *event) wait() {
	<-e.ch
}
