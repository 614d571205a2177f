// Package redisbus is a Transport backed by Redis pub/sub, grounded
// directly on the teacher's server/main.go: one Subscribe per replica,
// inbound wire lines relayed off the subscription's channel, outbound
// lines published to the destination replica's own channel name. It
// exists for deployments where replicas can't reach each other
// directly but share a Redis instance (e.g. across NAT boundaries).
package redisbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sumanthd032/songlist/internal/protocol"
	"github.com/sumanthd032/songlist/internal/transport"
)

const channelPrefix = "songlist:replica:"

func channelFor(id string) string { return channelPrefix + id }

// Link is one replica's Redis-backed Transport. Every replica
// subscribes only to its own channel; Send/Broadcast publish to the
// destination's channel.
type Link struct {
	selfID string
	rdb    *redis.Client
	sub    *redis.PubSub
	ch     <-chan *redis.Message
}

// NewLink subscribes id's channel and returns a ready Transport.
func NewLink(ctx context.Context, id string, rdb *redis.Client) *Link {
	sub := rdb.Subscribe(ctx, channelFor(id))
	return &Link{selfID: id, rdb: rdb, sub: sub, ch: sub.Channel()}
}

func (l *Link) Send(ctx context.Context, id string, line protocol.Line) error {
	return l.rdb.Publish(ctx, channelFor(id), l.selfID+" "+line.String()).Err()
}

func (l *Link) Broadcast(ctx context.Context, ids []string, line protocol.Line) {
	for _, id := range ids {
		_ = l.Send(ctx, id, line)
	}
}

func (l *Link) Recv(ctx context.Context) (transport.Message, error) {
	select {
	case msg, ok := <-l.ch:
		if !ok {
			return transport.Message{}, transport.ErrClosed
		}
		from, raw, err := splitEnvelope(msg.Payload)
		if err != nil {
			return transport.Message{}, err
		}
		decoded, err := protocol.DecodeLine(raw)
		if err != nil {
			return transport.Message{}, err
		}
		return transport.Message{From: from, Line: decoded}, nil
	case <-ctx.Done():
		return transport.Message{}, ctx.Err()
	}
}

func (l *Link) Close() error {
	return l.sub.Close()
}

// splitEnvelope peels the sender id the message was published with off
// the front of the payload: "<id> <wire line...>".
func splitEnvelope(payload string) (from, rest string, err error) {
	for i, c := range payload {
		if c == ' ' {
			return payload[:i], payload[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("redisbus: malformed envelope %q", payload)
}

var _ transport.Transport = (*Link)(nil)
