// Package broadcast fans channel activity out after a write has been answered.
package broadcast

import (
	"context"

	"github.com/nikhil/chapterhub/internal/events"
	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/push"
	"github.com/nikhil/chapterhub/internal/realtime"
	"github.com/nikhil/chapterhub/internal/worker"
)

// MemberLister returns the team member ids of a channel
type MemberLister interface {
	MemberIDs(ctx context.Context, channelID string) ([]string, error)
}

// Broadcaster delivers one channel event to websocket clients, the event
// stream and, for new messages, push subscribers
type Broadcaster struct {
	Members MemberLister
	Hub     *realtime.Hub
	Events  events.Publisher
	Push    *push.Dispatcher
	Jobs    *worker.Group
	Log     *logger.Logger
}

// Activity describes one change to a channel
type Activity struct {
	Type      string
	ChannelID string
	ActorID   string
	At        int64
	Payload   interface{}
	// Notification is sent as a push when set
	Notification *push.Notification
}

// Publish schedules delivery of a and returns immediately
func (b *Broadcaster) Publish(ctx context.Context, a Activity) {
	b.Jobs.Go(ctx, a.Type, func(ctx context.Context) {
		b.deliver(ctx, a)
	})
}

func (b *Broadcaster) deliver(ctx context.Context, a Activity) {
	log := b.Log.WithContext(ctx)

	ids, err := b.Members.MemberIDs(ctx, a.ChannelID)
	if err != nil {
		log.Error("Failed to load channel members for broadcast", "channel_id", a.ChannelID, "error", err)
	} else {
		b.Hub.SendToMembers(ids, realtime.Envelope{Type: a.Type, ChannelID: a.ChannelID, Payload: a.Payload})
	}

	err = b.Events.Publish(ctx, events.Event{
		Type:       a.Type,
		ChannelID:  a.ChannelID,
		ActorID:    a.ActorID,
		OccurredAt: a.At,
		Data:       a.Payload,
	})
	if err != nil {
		log.Warn("Failed to publish domain event", "type", a.Type, "channel_id", a.ChannelID, "error", err)
	}

	if a.Notification != nil {
		b.Push.NotifyChannel(ctx, a.ChannelID, a.ActorID, *a.Notification)
	}
}
