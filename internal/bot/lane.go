package bot

import (
	"sync"

	"github.com/flemzord/ghostmail/pkg/message"
)

// item is one unit of queued work for a chat.
type item struct {
	ev message.Event
	// limited marks a rate-limit notice rather than an event to handle.
	limited bool
}

// lanes provides per-chat ordering. Each chat with pending work owns a FIFO
// queue; its key is put on ready exactly once while the queue is non-empty,
// so a single worker drains one chat at a time while different chats are
// drained concurrently.
type lanes struct {
	mu      sync.Mutex
	queues  map[string][]item
	ready   chan string
	pending int
	limit   int
	closed  bool
}

func newLanes(limit int) *lanes {
	return &lanes{
		queues: make(map[string][]item),
		// Every scheduled key holds at least one pending item, so ready can
		// never hold more than limit keys and push never blocks.
		ready: make(chan string, limit),
		limit: limit,
	}
}

// push appends it to key's queue and schedules the key if it was idle.
func (l *lanes) push(key string, it item) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrStopped
	}
	if l.pending >= l.limit {
		return ErrQueueFull
	}

	q, scheduled := l.queues[key]
	l.queues[key] = append(q, it)
	l.pending++
	if !scheduled {
		l.ready <- key
	}
	return nil
}

// next pops the oldest item for key. It reports false, and releases the
// key, once the queue is empty.
func (l *lanes) next(key string) (item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	q := l.queues[key]
	if len(q) == 0 {
		delete(l.queues, key)
		return item{}, false
	}
	it := q[0]
	q[0] = item{}
	l.queues[key] = q[1:]
	l.pending--
	return it, true
}

// close stops accepting work. Keys already scheduled are still drained.
func (l *lanes) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.ready)
}

// len returns the number of queued items across all chats.
func (l *lanes) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending
}
