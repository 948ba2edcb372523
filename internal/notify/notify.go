package notify

import "context"

// Notifier is the one-recipient notification sink. Delivery is
// fire-and-forget: callers log failures and never retry.
type Notifier interface {
	SendText(ctx context.Context, text string) error
	SendFile(ctx context.Context, path string) error
}
