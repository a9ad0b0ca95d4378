package queue

import (
	"context"
	"fmt"
	"strconv"
	"sync"
)

// MemoryBroker keeps topics in process. Nothing survives a restart; it backs
// tests and single-process dev runs.
type MemoryBroker struct {
	mu sync.Mutex

	pending  map[Topic][]Envelope
	inflight map[string]Envelope // receipt -> envelope
	dead     map[Topic][]Envelope
	seq      uint64
	closed   bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		pending:  make(map[Topic][]Envelope),
		inflight: make(map[string]Envelope),
		dead:     make(map[Topic][]Envelope),
	}
}

func (b *MemoryBroker) Declare(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	for _, t := range Topics {
		if _, ok := b.pending[t]; !ok {
			b.pending[t] = nil
		}
	}
	return nil
}

func (b *MemoryBroker) Publish(ctx context.Context, e Envelope) error {
	if err := e.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	t := e.Topic()
	b.pending[t] = append(b.pending[t], e)
	return nil
}

func (b *MemoryBroker) Receive(ctx context.Context, topic Topic, consumer string) (Delivery, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return Delivery{}, false, ErrClosed
	}

	q := b.pending[topic]
	if len(q) == 0 {
		return Delivery{}, false, nil
	}

	e := q[0]
	b.pending[topic] = q[1:]

	b.seq++
	receipt := strconv.FormatUint(b.seq, 10)
	b.inflight[receipt] = e

	return Delivery{Topic: topic, Consumer: consumer, Envelope: e, Receipt: receipt}, true, nil
}

func (b *MemoryBroker) Settle(ctx context.Context, d Delivery, outcome Outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.inflight[d.Receipt]
	if !ok {
		return fmt.Errorf("unknown receipt %q", d.Receipt)
	}
	delete(b.inflight, d.Receipt)

	switch outcome {
	case Ack:
	case Requeue:
		b.pending[d.Topic] = append(b.pending[d.Topic], e.Retried())
	case DeadLetter:
		b.dead[d.Topic] = append(b.dead[d.Topic], e)
	default:
		return fmt.Errorf("unknown outcome %d", outcome)
	}
	return nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	return nil
}

// Pending returns a copy of the messages waiting on topic.
func (b *MemoryBroker) Pending(topic Topic) []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Envelope(nil), b.pending[topic]...)
}

// InFlight reports how many messages are claimed but not settled.
func (b *MemoryBroker) InFlight() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.inflight)
}

// Dead returns a copy of the dead-lettered messages of topic.
func (b *MemoryBroker) Dead(topic Topic) []Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Envelope(nil), b.dead[topic]...)
}
