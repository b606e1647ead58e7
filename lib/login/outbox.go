package login

import "sync"

// outbox delivers outcomes to a channel in order, without ever blocking the
// producer. Queued outcomes whose attempt is no longer current are dropped at
// delivery time.
type outbox struct {
	mu      sync.Mutex
	queue   []Outcome
	wake    chan struct{}
	stale   chan struct{}
	done    chan struct{}
	out     chan Outcome
	current func() AttemptID
}

func newOutbox(current func() AttemptID) *outbox {
	b := &outbox{
		wake:    make(chan struct{}, 1),
		stale:   make(chan struct{}),
		done:    make(chan struct{}),
		out:     make(chan Outcome),
		current: current,
	}
	go b.run()
	return b
}

func (b *outbox) push(o Outcome) {
	b.mu.Lock()
	b.queue = append(b.queue, o)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// supersede returns once the delivery loop has noticed that the attempt
// changed, so an outcome it holds for an older attempt is checked again
// before it can reach the consumer. It must not be called with the
// orchestrator lock held.
func (b *outbox) supersede() {
	select {
	case b.stale <- struct{}{}:
	case <-b.done:
	}
}

func (b *outbox) pop() (Outcome, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.queue) == 0 {
		return Outcome{}, false
	}
	o := b.queue[0]
	b.queue[0] = Outcome{}
	b.queue = b.queue[1:]
	return o, true
}

func (b *outbox) run() {
	defer close(b.out)
	for {
		o, ok := b.pop()
		if !ok {
			select {
			case <-b.wake:
			case <-b.stale:
			case <-b.done:
				return
			}
			continue
		}
		if !b.deliver(o) {
			return
		}
	}
}

// deliver reports false once the outbox is closed.
func (b *outbox) deliver(o Outcome) bool {
	for {
		if o.AttemptID != b.current() {
			return true
		}
		select {
		case b.out <- o:
			return true
		case <-b.stale:
		case <-b.done:
			return false
		}
	}
}

func (b *outbox) close() {
	close(b.done)
}
