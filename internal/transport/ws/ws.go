// Package ws implements transport.Transport over real WebSocket
// connections, grounded on the gorilla/websocket Hub/Client pattern
// from the songlist protocol's teacher project (agent/main.go's
// Client.readPump/writePump). Each peer connection gets its own
// read/write pump goroutine; all pumps funnel into one inbox channel
// that Recv drains, so from the room actor's point of view a WS Link
// behaves exactly like the memory transport.
package ws

import (
	"context"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/sumanthd032/songlist/internal/protocol"
	"github.com/sumanthd032/songlist/internal/transport"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// peerConn is one live connection to a named peer, either accepted
// (inbound) or dialed (outbound).
type peerConn struct {
	id   string
	conn *websocket.Conn
	send chan string
}

func (p *peerConn) writePump() {
	for line := range p.send {
		if err := p.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			log.Printf("ws: write to %s failed: %v", p.id, err)
			return
		}
	}
}

func (p *peerConn) readPump(inbox chan<- transport.Message, closed chan<- string) {
	defer func() { closed <- p.id }()
	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		line, err := protocol.DecodeLine(string(raw))
		if err != nil {
			log.Printf("ws: malformed line from %s: %v", p.id, err)
			continue
		}
		inbox <- transport.Message{From: p.id, Line: line}
	}
}

// Link is a replica's WebSocket transport handle: it listens for
// inbound peer connections on a local address and dials outbound
// connections to known peer addresses, retrying each dial with backoff.
// A connection that drops is removed from the peer map and not redialed.
type Link struct {
	id    string
	inbox chan transport.Message

	mu    sync.Mutex
	peers map[string]*peerConn

	closedPeers chan string
	closed      chan struct{}
	server      *http.Server
}

// NewLink starts listening on listenAddr for inbound peer connections
// upgraded at path "/peer". Peers dial in using DialPeer.
func NewLink(id, listenAddr string) (*Link, error) {
	l := &Link{
		id:          id,
		inbox:       make(chan transport.Message, 256),
		peers:       make(map[string]*peerConn),
		closedPeers: make(chan string, 16),
		closed:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/peer", l.handleInbound)
	l.server = &http.Server{Addr: listenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("ws: serve on %s: %v", listenAddr, err)
		}
	}()
	go l.reapClosedPeers()
	return l, nil
}

func (l *Link) reapClosedPeers() {
	for {
		select {
		case id := <-l.closedPeers:
			l.mu.Lock()
			delete(l.peers, id)
			l.mu.Unlock()
		case <-l.closed:
			return
		}
	}
}

func (l *Link) handleInbound(w http.ResponseWriter, r *http.Request) {
	peerID := r.URL.Query().Get("id")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	p := &peerConn{id: peerID, conn: conn, send: make(chan string, 64)}
	l.mu.Lock()
	l.peers[peerID] = p
	l.mu.Unlock()
	go p.writePump()
	go p.readPump(l.inbox, l.closedPeers)
}

// DialPeer connects to a peer's listen address, retrying with
// exponential backoff (cenkalti/backoff), matching the retry shape the
// teacher project uses for node registration against its coordinator.
func (l *Link) DialPeer(ctx context.Context, peerID, addr string) error {
	url := "ws://" + addr + "/peer?id=" + l.id

	var conn *websocket.Conn
	op := func() error {
		c, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(op, b); err != nil {
		return err
	}

	p := &peerConn{id: peerID, conn: conn, send: make(chan string, 64)}
	l.mu.Lock()
	l.peers[peerID] = p
	l.mu.Unlock()
	go p.writePump()
	go p.readPump(l.inbox, l.closedPeers)
	return nil
}

func (l *Link) Send(ctx context.Context, id string, line protocol.Line) error {
	l.mu.Lock()
	p, ok := l.peers[id]
	l.mu.Unlock()
	if !ok {
		return nil // unreachable peer: best-effort, not an error
	}
	select {
	case p.send <- line.String():
	default:
		log.Printf("ws: send buffer full for %s, dropping", id)
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
	case m := <-l.inbox:
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
	}
	close(l.closed)
	l.mu.Lock()
	for _, p := range l.peers {
		_ = p.conn.Close()
	}
	l.mu.Unlock()
	return l.server.Close()
}

var _ transport.Transport = (*Link)(nil)
