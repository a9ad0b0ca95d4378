// Package queue is the durable work queue between the scheduler and the
// worker pool. Delivery is at-least-once: a message stays owned by one
// consumer until it is settled, and unsettled messages are redelivered.
package queue

import (
	"context"
	"errors"
)

// Outcome is what a handler decided for a delivery.
type Outcome int

const (
	Ack Outcome = iota
	Requeue
	DeadLetter
)

func (o Outcome) String() string {
	switch o {
	case Ack:
		return "ack"
	case Requeue:
		return "requeue"
	case DeadLetter:
		return "dead_letter"
	default:
		return "unknown"
	}
}

var ErrClosed = errors.New("broker closed")

// Delivery is a claimed message. Receipt is the backend's handle for settling it.
type Delivery struct {
	Topic    Topic
	Consumer string
	Envelope Envelope
	Receipt  string
}

type Publisher interface {
	Publish(ctx context.Context, e Envelope) error
}

type Broker interface {
	Publisher

	// Declare (re)creates every topic. Safe to call repeatedly.
	Declare(ctx context.Context) error

	// Receive claims at most one message for consumer. ok is false when the topic is empty.
	Receive(ctx context.Context, topic Topic, consumer string) (d Delivery, ok bool, err error)

	Settle(ctx context.Context, d Delivery, outcome Outcome) error

	Close() error
}

// PublishTask wraps t in a fresh envelope and publishes it.
func PublishTask(ctx context.Context, p Publisher, t Task) (Envelope, error) {
	e := NewEnvelope(t)
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, p.Publish(ctx, e)
}
