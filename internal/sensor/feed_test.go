package sensor

import "testing"

func TestFeedLatestWins(t *testing.T) {
	var f feed[int]
	ch, cancel := f.subscribe()
	defer cancel()

	// Nobody draining: later publishes replace earlier ones.
	f.publish(1)
	f.publish(2)
	f.publish(3)

	if got := <-ch; got != 3 {
		t.Errorf("received %d, want latest value 3", got)
	}
}

func TestFeedCancelClosesChannel(t *testing.T) {
	var f feed[int]
	ch, cancel := f.subscribe()

	cancel()
	if _, ok := <-ch; ok {
		t.Error("expected closed channel after cancel")
	}
	if f.count() != 0 {
		t.Errorf("count = %d after cancel, want 0", f.count())
	}

	// Cancelling twice is harmless.
	cancel()
}

func TestFeedCloseAll(t *testing.T) {
	var f feed[string]
	a, _ := f.subscribe()
	b, _ := f.subscribe()

	f.closeAll()
	if _, ok := <-a; ok {
		t.Error("subscriber a not closed")
	}
	if _, ok := <-b; ok {
		t.Error("subscriber b not closed")
	}
	// Publishing to a drained feed is a no-op.
	f.publish("x")
}

func TestFeedIndependentSubscribers(t *testing.T) {
	var f feed[int]
	a, cancelA := f.subscribe()
	b, cancelB := f.subscribe()
	defer cancelA()
	defer cancelB()

	f.publish(42)
	if got := <-a; got != 42 {
		t.Errorf("subscriber a got %d", got)
	}
	if got := <-b; got != 42 {
		t.Errorf("subscriber b got %d", got)
	}
}
