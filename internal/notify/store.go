package notify

import (
	"context"
	"time"
)

type Store interface {
	Insert(ctx context.Context, n Notification) error
	ListForUser(ctx context.Context, userID string, opt ListOptions) (Page, error)
	// MarkRead, Delete: a row the user does not own is reported as not found.
	MarkRead(ctx context.Context, userID, id string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) (int, error)
	Delete(ctx context.Context, userID, id string) error
	AdminList(ctx context.Context, f AdminFilter) (Page, error)
	AdminDelete(ctx context.Context, id string) error
}

// Directory lists the recipients of a global notification.
type Directory interface {
	ActiveUserIDs(ctx context.Context) ([]string, error)
}
