// Package transport abstracts how a replica sends and receives wire
// lines to and from its peers. The songlist protocol itself (internal/room)
// never touches a socket directly; it only calls Transport.
//
// Transport semantics mirror an asynchronous network: Send is
// fire-and-forget, Recv blocks until a line arrives or ctx is done.
// Messages from a given sender to a given recipient are delivered in
// send order; no ordering is assumed across different senders.
package transport

import (
	"context"
	"errors"

	"github.com/sumanthd032/songlist/internal/protocol"
)

// ErrClosed is returned by Recv once a Transport has been closed.
var ErrClosed = errors.New("transport: closed")

// Message is an inbound wire line tagged with its sender.
type Message struct {
	From string
	Line protocol.Line
}

// Transport is the peer-to-peer and master-facing wire boundary a Room
// actor drives. Implementations must never block Send on a destination
// being unreachable; a down peer is the failure detector's concern, not
// the transport's.
type Transport interface {
	// Send delivers line to the peer identified by id. It does not wait
	// for acknowledgement and does not fail merely because the peer is
	// currently unreachable — delivery is best-effort.
	Send(ctx context.Context, id string, line protocol.Line) error

	// Broadcast is Send to every id in ids.
	Broadcast(ctx context.Context, ids []string, line protocol.Line)

	// Recv blocks until a line arrives from any peer, ctx is cancelled,
	// or the transport is closed (ErrClosed).
	Recv(ctx context.Context) (Message, error)

	// Close shuts the transport down; subsequent Recv calls return
	// ErrClosed and Send calls are no-ops.
	Close() error
}
