package transport

import "sync"

// Mailbox runs posted callbacks one at a time, in order, on its own
// goroutine. Callbacks already queued when Stop is called still run.
type Mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	stopped bool
}

func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	go m.run()
	return m
}

func (m *Mailbox) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.queue = append(m.queue, fn)
	m.cond.Signal()
}

func (m *Mailbox) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.cond.Broadcast()
	m.mu.Unlock()
}

func (m *Mailbox) run() {
	for {
		m.mu.Lock()
		for len(m.queue) == 0 && !m.stopped {
			m.cond.Wait()
		}
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue[0] = nil
		m.queue = m.queue[1:]
		m.mu.Unlock()

		fn()
	}
}

// EventBuffer holds events of type E until Bind, then delivers them and
// every later event through a Mailbox in firing order.
type EventBuffer[E any] struct {
	box *Mailbox

	mu      sync.Mutex
	events  *E
	pending []func(E)
}

func NewEventBuffer[E any](box *Mailbox) *EventBuffer[E] {
	return &EventBuffer[E]{box: box}
}

func (b *EventBuffer[E]) Bind(ev E) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = &ev
	for _, fn := range b.pending {
		b.box.Post(func() { fn(ev) })
	}
	b.pending = nil
}

func (b *EventBuffer[E]) Fire(fn func(E)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.events == nil {
		b.pending = append(b.pending, fn)
		return
	}
	ev := *b.events
	b.box.Post(func() { fn(ev) })
}
