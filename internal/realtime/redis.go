package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/config"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
)

const (
	roomPrefix         = "chat:room:"
	notificationPrefix = "notifications:"
	instancePrefix     = "chat:instance:"

	// instanceTTL is how long an instance counts as alive after its last
	// heartbeat. Members of a dead instance are swept on the next read.
	instanceTTL = 30 * time.Second
)

// NewRedis creates a new Redis client
func NewRedis(cfg config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	slog.Info("redis client created", "addr", cfg.RedisAddr)
	return rdb
}

func roomChannel(room uuid.UUID) string { return roomPrefix + room.String() }

func membersKey(room uuid.UUID) string { return roomPrefix + room.String() + ":members" }

// Broker fans chat traffic out through Redis so every instance can deliver
// to its own sockets, and keeps room membership in Redis sets.
type Broker struct {
	rdb      *redis.Client
	hub      *Hub
	instance string
}

func NewBroker(rdb *redis.Client, hub *Hub) *Broker {
	return &Broker{rdb: rdb, hub: hub, instance: uuid.NewString()}
}

// member encodes a socket as "<instance>|<socket>|<user>" in the room set.
func (b *Broker) member(client *Client) string {
	return b.instance + "|" + client.ID + "|" + client.UserID.String()
}

// Join records client in room locally and in the shared member set.
func (b *Broker) Join(ctx context.Context, client *Client, room uuid.UUID) error {
	b.hub.Join(client, room)
	if err := b.touch(ctx); err != nil {
		return err
	}
	if err := b.rdb.SAdd(ctx, membersKey(room), b.member(client)).Err(); err != nil {
		return errors.Wrap(err, "add room member")
	}
	return nil
}

func (b *Broker) Leave(ctx context.Context, client *Client, room uuid.UUID) error {
	b.hub.Leave(client, room)
	if err := b.rdb.SRem(ctx, membersKey(room), b.member(client)).Err(); err != nil {
		return errors.Wrap(err, "remove room member")
	}
	return nil
}

// LeaveAll drops client from every room it joined, used on disconnect.
func (b *Broker) LeaveAll(ctx context.Context, client *Client) {
	for _, room := range b.hub.RoomsOf(client) {
		if err := b.Leave(ctx, client, room); err != nil {
			slog.Warn("could not leave room", "room", room, "client", client.ID, "err", err)
		}
	}
}

// Members returns the users with a socket in room on any live instance.
// Entries left behind by instances that stopped heartbeating are removed.
func (b *Broker) Members(ctx context.Context, room uuid.UUID) ([]uuid.UUID, error) {
	entries, err := b.rdb.SMembers(ctx, membersKey(room)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list room members")
	}

	alive := map[string]bool{}
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	var stale []interface{}
	for _, e := range entries {
		parts := strings.SplitN(e, "|", 3)
		if len(parts) != 3 {
			stale = append(stale, e)
			continue
		}
		userID, err := uuid.Parse(parts[2])
		if err != nil {
			stale = append(stale, e)
			continue
		}

		live, checked := alive[parts[0]]
		if !checked {
			n, err := b.rdb.Exists(ctx, instancePrefix+parts[0]).Result()
			if err != nil {
				return nil, errors.Wrap(err, "check instance")
			}
			live = n > 0
			alive[parts[0]] = live
		}
		if !live {
			stale = append(stale, e)
			continue
		}
		if !seen[userID] {
			seen[userID] = true
			out = append(out, userID)
		}
	}

	if len(stale) > 0 {
		if err := b.rdb.SRem(ctx, membersKey(room), stale...).Err(); err != nil {
			slog.Warn("could not sweep stale room members", "room", room, "err", err)
		}
	}
	return out, nil
}

// touch marks this instance alive for another instanceTTL.
func (b *Broker) touch(ctx context.Context) error {
	if err := b.rdb.Set(ctx, instancePrefix+b.instance, 1, instanceTTL).Err(); err != nil {
		return errors.Wrap(err, "instance heartbeat")
	}
	return nil
}

func (b *Broker) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(instanceTTL / 3)
	defer ticker.Stop()
	for {
		if err := b.touch(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("redis heartbeat failed", "instance", b.instance, "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PublishMessage announces a stored chat message to the room's channel.
func (b *Broker) PublishMessage(ctx context.Context, chatID uuid.UUID, msg *models.ChatMessage) error {
	payload, err := json.Marshal(Envelope{Event: EventNewMessage, Data: msg})
	if err != nil {
		return errors.Wrap(err, "encode message")
	}
	if err := b.rdb.Publish(ctx, roomChannel(chatID), payload).Err(); err != nil {
		return errors.Wrap(err, "publish message")
	}
	return nil
}

// Notify publishes a user notification, delivered to that user's sockets.
func (b *Broker) Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) error {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return errors.Wrap(err, "encode notification")
	}
	if err := b.rdb.Publish(ctx, notificationPrefix+userID.String(), payload).Err(); err != nil {
		return errors.Wrap(err, "publish notification")
	}
	return nil
}

// Run forwards published room messages and notifications to local sockets
// until ctx is cancelled.
func (b *Broker) Run(ctx context.Context) error {
	sub := b.rdb.PSubscribe(ctx, roomPrefix+"*", notificationPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	ch := sub.Channel()
	go b.heartbeat(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.dispatch(msg)
		}
	}
}

func (b *Broker) dispatch(msg *redis.Message) {
	switch {
	case strings.HasPrefix(msg.Channel, roomPrefix):
		room, err := uuid.Parse(strings.TrimPrefix(msg.Channel, roomPrefix))
		if err != nil {
			return
		}
		b.hub.BroadcastRoom(room, []byte(msg.Payload))
	case strings.HasPrefix(msg.Channel, notificationPrefix):
		userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, notificationPrefix))
		if err != nil {
			return
		}
		b.hub.SendToUser(userID, []byte(msg.Payload))
	}
}
