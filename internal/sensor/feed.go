package sensor

import "sync"

// feed fans values out to subscription channels with latest-wins delivery:
// a subscriber that has not drained the previous value gets it replaced
// rather than blocking the producer. Cancelling a subscription closes its
// channel, which is what unblocks a consumer parked on a receive.
type feed[T any] struct {
	mu   sync.Mutex
	subs []chan T
}

func (f *feed[T]) subscribe() (<-chan T, func()) {
	ch := make(chan T, 1)
	f.mu.Lock()
	f.subs = append(f.subs, ch)
	f.mu.Unlock()
	return ch, func() { f.drop(ch) }
}

func (f *feed[T]) drop(ch chan T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sub := range f.subs {
		if sub == ch {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			close(ch)
			return
		}
	}
}

// publish delivers v to every subscriber. Sends are non-blocking, so the
// lock is held throughout; this also keeps a concurrent drop from closing
// a channel mid-send.
func (f *feed[T]) publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// Slot occupied: evict the stale value, then retry once. If the
		// consumer raced us and drained it, the send below wins anyway.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// closeAll drops every subscription, closing the channels.
func (f *feed[T]) closeAll() {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()
	for _, ch := range subs {
		close(ch)
	}
}

func (f *feed[T]) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
