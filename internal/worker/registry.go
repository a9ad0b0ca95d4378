package worker

import (
	"context"

	"github.com/ETAnderson/catalogsync/internal/queue"
)

// TaskHandler runs one kind of task. A nil error acknowledges it.
type TaskHandler interface {
	Kind() queue.Kind
	Handle(ctx context.Context, t queue.Task) error
}

type HandlerFunc struct {
	K  queue.Kind
	Fn func(ctx context.Context, t queue.Task) error
}

func (h HandlerFunc) Kind() queue.Kind { return h.K }

func (h HandlerFunc) Handle(ctx context.Context, t queue.Task) error { return h.Fn(ctx, t) }

type Registry struct {
	byKind map[queue.Kind]TaskHandler
}

func NewRegistry(handlers ...TaskHandler) Registry {
	m := make(map[queue.Kind]TaskHandler, len(handlers))
	for _, h := range handlers {
		if h == nil {
			continue
		}
		m[h.Kind()] = h
	}
	return Registry{byKind: m}
}

func (r Registry) Get(kind queue.Kind) (TaskHandler, bool) {
	if r.byKind == nil {
		return nil, false
	}
	h, ok := r.byKind[kind]
	return h, ok
}
