package realtime

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
)

const (
	roomChannelPrefix = "realtime:"
	userChannelPrefix = "notifications:"
)

// Broker routes events to sockets. With redis every instance subscribes and
// delivers to its own sockets, so publishers never touch the hub directly.
// Without redis delivery is local.
type Broker struct {
	hub    *Hub
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewBroker(hub *Hub, rdb *redis.Client) *Broker {
	return &Broker{hub: hub, rdb: rdb, logger: log.WithComponent("broker")}
}

// ProjectEvent fans an event out to the room of projectID.
func (b *Broker) ProjectEvent(ctx context.Context, projectID uuid.UUID, event string, data interface{}) {
	b.publish(ctx, roomChannelPrefix+ProjectRoom(projectID), Event{Event: event, Data: data})
}

// UserEvent reaches every socket of userID regardless of joined rooms.
func (b *Broker) UserEvent(ctx context.Context, userID uuid.UUID, event string, data interface{}) {
	b.publish(ctx, userChannelPrefix+userID.String(), Event{Event: event, Data: data})
}

func (b *Broker) publish(ctx context.Context, channel string, ev Event) {
	payload, err := encode(ev)
	if err != nil {
		b.logger.Error().Err(err).Str("event", ev.Event).Msg("encode event")
		return
	}

	if b.rdb != nil {
		err := b.rdb.Publish(context.WithoutCancel(ctx), channel, payload).Err()
		if err == nil {
			return
		}
		b.logger.Warn().Err(err).Str("channel", channel).Msg("redis publish failed, delivering locally")
	}
	b.dispatch(channel, payload)
}

func (b *Broker) dispatch(channel string, payload []byte) {
	switch {
	case strings.HasPrefix(channel, roomChannelPrefix):
		b.hub.BroadcastRoom(strings.TrimPrefix(channel, roomChannelPrefix), payload)
	case strings.HasPrefix(channel, userChannelPrefix):
		uid, err := uuid.Parse(strings.TrimPrefix(channel, userChannelPrefix))
		if err != nil {
			b.logger.Warn().Str("channel", channel).Msg("bad user channel")
			return
		}
		b.hub.SendToUser(uid, payload)
	}
}

// Run relays redis messages to local sockets until ctx is done. Without
// redis it just waits.
func (b *Broker) Run(ctx context.Context) error {
	if b.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := b.rdb.PSubscribe(ctx, roomChannelPrefix+"*", userChannelPrefix+"*")
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info().Msg("subscribed to realtime channels")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(msg.Channel, []byte(msg.Payload))
		}
	}
}
