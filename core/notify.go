package core

import (
	"context"
	"log"
)

// Notification is a fire-and-forget message to one user. Delivery
// mechanics (push, service worker) are outside the engine; a failed
// notification never fails the operation that produced it.
type Notification struct {
	UserID  string
	HotelID string
	Title   string
	Body    string
}

// Notifier delivers notifications. Implementations must not block the
// calling operation on delivery.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier writes notifications to the process log. Used when no real
// dispatcher is wired.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) {
	log.Printf("notify user=%s hotel=%s: %s", n.UserID, n.HotelID, n.Title)
}

// NopNotifier drops notifications.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) {}
