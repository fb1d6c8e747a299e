package store

import "sync"

const (
	TableVotes      = "votes"
	TableQuizRounds = "quiz_rounds"
)

// Insert describes a row that was just written. Notifications are a latency
// optimization only: delivery is at-most-once and consumers must re-read
// durable rows for anything that matters.
type Insert struct {
	Table   string
	RoomID  uint
	RoundID uint
	RowID   uint
}

type subscription struct {
	ch    chan Insert
	match func(Insert) bool
}

// Notifier fans row-insert events out to in-process subscribers, each
// scoped by a filter predicate.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]subscription
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]subscription)}
}

// Subscribe registers a filtered listener. The returned cancel func must be
// called when the consumer goes away.
func (n *Notifier) Subscribe(match func(Insert) bool) (<-chan Insert, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	ch := make(chan Insert, 16)
	n.subs[id] = subscription{ch: ch, match: match}
	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if sub, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(sub.ch)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every matching subscriber without
// blocking; a slow consumer simply misses it.
func (n *Notifier) Publish(event Insert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.subs {
		if sub.match != nil && !sub.match(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
		}
	}
}
