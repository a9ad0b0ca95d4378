package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Kind string

const (
	KindProducts   Kind = "products"
	KindCategories Kind = "categories"
	KindInitial    Kind = "initial"
)

type Topic string

const (
	TopicProducts    Topic = "products"
	TopicCategories  Topic = "categories"
	TopicInitialSync Topic = "initial-sync"
)

// Topics lists every topic a worker process declares and consumes.
var Topics = []Topic{TopicProducts, TopicCategories, TopicInitialSync}

var ErrInvalidTask = errors.New("invalid task")

// Task is one unit of sync work. Immutable once published.
type Task struct {
	Kind       Kind   `json:"type"`
	MerchantID string `json:"merchantId"`
	CategoryID string `json:"categoryId,omitempty"`
}

func ProductsTask(merchantID string, categoryID string) Task {
	return Task{Kind: KindProducts, MerchantID: merchantID, CategoryID: categoryID}
}

func CategoriesTask(merchantID string) Task {
	return Task{Kind: KindCategories, MerchantID: merchantID}
}

func InitialTask(merchantID string) Task {
	return Task{Kind: KindInitial, MerchantID: merchantID}
}

func (t Task) Topic() Topic {
	switch t.Kind {
	case KindProducts:
		return TopicProducts
	case KindCategories:
		return TopicCategories
	case KindInitial:
		return TopicInitialSync
	default:
		return ""
	}
}

func (t Task) Validate() error {
	if t.Topic() == "" {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTask, t.Kind)
	}
	if strings.TrimSpace(t.MerchantID) == "" {
		return fmt.Errorf("%w: merchantId is required", ErrInvalidTask)
	}
	if t.Kind == KindProducts && strings.TrimSpace(t.CategoryID) == "" {
		return fmt.Errorf("%w: categoryId is required for products", ErrInvalidTask)
	}
	return nil
}

// Envelope is the persisted message body: the task plus delivery bookkeeping.
type Envelope struct {
	ID      string `json:"id,omitempty"`
	Attempt int    `json:"attempt,omitempty"`
	Task
}

func NewEnvelope(t Task) Envelope {
	return Envelope{ID: uuid.NewString(), Task: t}
}

// Retried returns the envelope as it is requeued after a failed attempt.
func (e Envelope) Retried() Envelope {
	e.Attempt++
	return e
}

func Encode(e Envelope) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

func Decode(b []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	if err := e.Validate(); err != nil {
		return Envelope{}, err
	}
	return e, nil
}
