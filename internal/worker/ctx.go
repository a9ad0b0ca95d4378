package worker

import "context"

type ctxKey string

const (
	taskIDKey     ctxKey = "worker_task_id"
	merchantIDKey ctxKey = "worker_merchant_id"
)

// WithTaskID stores the queue message id on the context.
func WithTaskID(ctx context.Context, taskID string) context.Context {
	if taskID == "" {
		return ctx
	}
	return context.WithValue(ctx, taskIDKey, taskID)
}

func TaskID(ctx context.Context) string {
	s, _ := ctx.Value(taskIDKey).(string)
	return s
}

// WithMerchantID stores the merchant a task is working on.
func WithMerchantID(ctx context.Context, merchantID string) context.Context {
	if merchantID == "" {
		return ctx
	}
	return context.WithValue(ctx, merchantIDKey, merchantID)
}

func MerchantID(ctx context.Context) string {
	s, _ := ctx.Value(merchantIDKey).(string)
	return s
}
