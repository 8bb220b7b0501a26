package notify

import (
	"context"
	"fmt"

	"pharmacy-dashboard/internal/store"
	"pharmacy-dashboard/models"
)

// Sender delivers one notification text to an external channel.
type Sender interface {
	Send(text string) error
}

// Forwarder drains notifications the local cache has not forwarded yet
// through a Sender, marking each one so it is never forwarded twice, even
// across dashboard restarts.
type Forwarder struct {
	store  *store.NotificationStore
	sender Sender
}

// NewForwarder creates a Forwarder.
func NewForwarder(st *store.NotificationStore, sender Sender) *Forwarder {
	return &Forwarder{store: st, sender: sender}
}

// Flush forwards all pending notifications in arrival order. It stops at the
// first send failure so the remaining ones are retried on the next flush.
func (f *Forwarder) Flush(ctx context.Context) error {
	pending, err := f.store.ListUnforwarded(ctx)
	if err != nil {
		return err
	}
	for _, n := range pending {
		if err := f.sender.Send(formatNotification(n)); err != nil {
			return fmt.Errorf("forward notification %s: %w", n.ID, err)
		}
		if err := f.store.MarkForwarded(ctx, n.ID); err != nil {
			return err
		}
	}
	return nil
}

func formatNotification(n *models.Notification) string {
	if n.Title == "" {
		return n.Message
	}
	return n.Title + "\n" + n.Message
}
