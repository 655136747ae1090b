package scheduler

import (
	"sync"

	"ecoscan/pkg/models"
)

// notifier hands snapshots to a sink on its own goroutine. Only the latest
// undelivered snapshot is kept, so a slow sink skips intermediate states
// instead of holding up the scheduler.
type notifier struct {
	sink    Sink
	mu      sync.Mutex
	pending *models.Snapshot
	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newNotifier(sink Sink) *notifier {
	n := &notifier{
		sink:    sink,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go n.loop()
	return n
}

func (n *notifier) publish(snapshot models.Snapshot) {
	n.mu.Lock()
	n.pending = &snapshot
	n.mu.Unlock()

	select {
	case n.wake <- struct{}{}:
	default:
	}
}

func (n *notifier) take() *models.Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	snapshot := n.pending
	n.pending = nil
	return snapshot
}

func (n *notifier) loop() {
	defer close(n.stopped)
	for {
		select {
		case <-n.wake:
			if snapshot := n.take(); snapshot != nil {
				n.sink.Publish(*snapshot)
			}
		case <-n.done:
			if snapshot := n.take(); snapshot != nil {
				n.sink.Publish(*snapshot)
			}
			return
		}
	}
}

// close delivers any pending snapshot and stops the goroutine
func (n *notifier) close() {
	n.once.Do(func() { close(n.done) })
	<-n.stopped
}
