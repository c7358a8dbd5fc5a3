package authsync

import (
	"sync"
)

// Feed holds a current value and fans every published value out to its
// subscribers. Each subscriber gets its own unbounded queue, so a slow reader
// never blocks Publish and never loses an intermediate value.
type Feed[T any] struct {
	mu      sync.Mutex
	current T
	subs    map[*Subscription[T]]struct{}
	closed  bool
}

// NewFeed creates a feed seeded with initial.
func NewFeed[T any](initial T) *Feed[T] {
	return &Feed[T]{
		current: initial,
		subs:    make(map[*Subscription[T]]struct{}),
	}
}

// Current returns the last published value.
func (f *Feed[T]) Current() T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Publish stores v as the current value and queues it for every subscriber.
// Publishing on a closed feed is a no-op.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.current = v
	for sub := range f.subs {
		sub.push(v)
	}
}

// Subscribe registers a new subscriber. The current value is queued first.
// Subscribing to a closed feed returns a subscription whose channel delivers
// the current value and is then closed.
func (f *Feed[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		feed:    f,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		out:     make(chan T),
	}

	f.mu.Lock()
	sub.push(f.current)
	if f.closed {
		sub.finish()
	} else {
		f.subs[sub] = struct{}{}
	}
	f.mu.Unlock()

	go sub.pump()
	return sub
}

// Close stops accepting values. Subscribers receive whatever is already
// queued and then see their channel closed.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for sub := range f.subs {
		sub.finish()
		delete(f.subs, sub)
	}
}

func (f *Feed[T]) remove(sub *Subscription[T]) {
	f.mu.Lock()
	delete(f.subs, sub)
	f.mu.Unlock()
}

// Subscription is a single consumer of a Feed.
type Subscription[T any] struct {
	feed *Feed[T]

	mu      sync.Mutex
	queue   []T
	closing bool

	signal  chan struct{}
	done    chan struct{}
	stopped chan struct{}
	out     chan T
	once    sync.Once
}

// C returns the delivery channel. It is closed once the subscription ends.
func (s *Subscription[T]) C() <-chan T {
	return s.out
}

// Cancel ends the subscription. Once Cancel returns no further value is
// delivered. It is safe to call more than once and from the receiving
// goroutine.
func (s *Subscription[T]) Cancel() {
	if s.feed != nil {
		s.feed.remove(s)
	}
	s.once.Do(func() { close(s.done) })
	<-s.stopped
}

func (s *Subscription[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[T]) finish() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()
	s.wake()
}

func (s *Subscription[T]) wake() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) next() (v T, ok bool, closing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return v, false, s.closing
	}
	v = s.queue[0]
	var zero T
	s.queue[0] = zero
	s.queue = s.queue[1:]
	return v, true, s.closing
}

func (s *Subscription[T]) pump() {
	defer close(s.stopped)
	defer close(s.out)

	for {
		v, ok, closing := s.next()
		if !ok {
			if closing {
				return
			}
			select {
			case <-s.signal:
				continue
			case <-s.done:
				return
			}
		}

		select {
		case s.out <- v:
		case <-s.done:
			return
		}
	}
}
