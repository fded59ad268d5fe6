package push

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tandemapp/tandem/internal/model"
)

// Sender delivers a payload to a single subscription.
type Sender interface {
	Send(sub *model.PushSubscription, payload Payload) error
}

// SubscriptionSource lists the subscriptions reachable from a share.
type SubscriptionSource interface {
	ListForShare(shareID, exclude int64) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

// Notifier fans out push notifications to the members of a share,
// skipping the user who triggered the event.
type Notifier struct {
	sender Sender
	subs   SubscriptionSource
	logger *slog.Logger
}

func NewNotifier(sender Sender, subs SubscriptionSource, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		subs:   subs,
		logger: logger.With("component", "push"),
	}
}

// truncate shortens s to at most max runes, appending an ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// NotifyMessage notifies share members that a new message was posted.
func (n *Notifier) NotifyMessage(shareID, authorID int64, authorName, body string) {
	body = truncate(body, 80)
	n.fanOut(shareID, authorID, Payload{
		Title: fmt.Sprintf("%s sent a message", authorName),
		Body:  body,
		URL:   "/messages",
		Tag:   fmt.Sprintf("message-%d", shareID),
	})
}

// NotifyScheduleUpdated notifies share members that a member changed
// their schedule for the given week.
func (n *Notifier) NotifyScheduleUpdated(shareID, authorID int64, authorName, weekDate string) {
	n.fanOut(shareID, authorID, Payload{
		Title: "Schedule updated",
		Body:  fmt.Sprintf("%s updated their schedule for the week of %s", authorName, weekDate),
		URL:   "/schedule",
		Tag:   fmt.Sprintf("schedule-%d-%s", shareID, weekDate),
	})
}

func (n *Notifier) fanOut(shareID, excludeUserID int64, payload Payload) {
	subs, err := n.subs.ListForShare(shareID, excludeUserID)
	if err != nil {
		n.logger.Error("list subscriptions", "share_id", shareID, "error", err)
		return
	}

	for _, sub := range subs {
		if err := n.sender.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				if err := n.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
					n.logger.Error("delete expired subscription", "error", err)
				}
				continue
			}
			n.logger.Error("send notification", "endpoint", sub.Endpoint, "error", err)
		}
	}
}
