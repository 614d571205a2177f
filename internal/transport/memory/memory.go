// Package memory implements transport.Transport over Go channels for
// single-process tests and demos. Its Network is grounded on the Hub
// pattern from the songlist protocol's teacher project: one goroutine
// owns the registry exclusively and serializes register/unregister/send
// through channels instead of a mutex, the same shape internal/room
// uses for its own actor loop.
package memory

import (
	"context"

	"github.com/sumanthd032/songlist/internal/protocol"
	"github.com/sumanthd032/songlist/internal/transport"
)

type registerMsg struct {
	id    string
	inbox chan transport.Message
}

type sendMsg struct {
	to   string
	from string
	line protocol.Line
}

// Network is a shared in-memory switchboard every replica's Link
// attaches to. It must be created once per test/demo cluster.
type Network struct {
	register   chan registerMsg
	unregister chan string
	send       chan sendMsg
	done       chan struct{}
}

func NewNetwork() *Network {
	n := &Network{
		register:   make(chan registerMsg),
		unregister: make(chan string),
		send:       make(chan sendMsg, 256),
		done:       make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *Network) run() {
	inboxes := make(map[string]chan transport.Message)
	for {
		select {
		case r := <-n.register:
			inboxes[r.id] = r.inbox
		case id := <-n.unregister:
			if inbox, ok := inboxes[id]; ok {
				delete(inboxes, id)
				close(inbox)
			}
		case s := <-n.send:
			inbox, ok := inboxes[s.to]
			if !ok {
				continue
			}
			select {
			case inbox <- transport.Message{From: s.from, Line: s.line}:
			default:
				// Slow/blocked peer: drop rather than stall the sender,
				// matching the asynchronous-network, best-effort Send
				// contract every Transport implementation promises.
			}
		case <-n.done:
			return
		}
	}
}

// Close stops the network's run loop. Individual Links remain usable
// (their Recv simply never receives anything new) until they are
// closed themselves.
func (n *Network) Close() { close(n.done) }

// Link is one replica's handle onto a Network.
type Link struct {
	id     string
	net    *Network
	inbox  chan transport.Message
	closed chan struct{}
}

// Join registers id with the network and returns its Transport handle.
func (n *Network) Join(id string) *Link {
	l := &Link{
		id:     id,
		net:    n,
		inbox:  make(chan transport.Message, 256),
		closed: make(chan struct{}),
	}
	n.register <- registerMsg{id: id, inbox: l.inbox}
	return l
}

func (l *Link) Send(ctx context.Context, id string, line protocol.Line) error {
	select {
	case l.net.send <- sendMsg{to: id, from: l.id, line: line}:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closed:
		return transport.ErrClosed
	}
	return nil
}

func (l *Link) Broadcast(ctx context.Context, ids []string, line protocol.Line) {
	for _, id := range ids {
		_ = l.Send(ctx, id, line)
	}
}

func (l *Link) Recv(ctx context.Context) (transport.Message, error) {
	select {
	case m, ok := <-l.inbox:
		if !ok {
			return transport.Message{}, transport.ErrClosed
		}
		return m, nil
	case <-ctx.Done():
		return transport.Message{}, ctx.Err()
	case <-l.closed:
		return transport.Message{}, transport.ErrClosed
	}
}

func (l *Link) Close() error {
	select {
	case <-l.closed:
		return nil
	default:
		close(l.closed)
		select {
		case l.net.unregister <- l.id:
		case <-l.net.done:
		}
		return nil
	}
}

var _ transport.Transport = (*Link)(nil)
