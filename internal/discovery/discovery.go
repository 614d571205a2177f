// Package discovery is the mDNS peer bootstrap for a replica, grounded
// directly on the teacher agent's startDiscovery: zeroconf.Register
// advertises this replica, a zeroconf.Resolver browses for the others.
// A replica ID is carried in the advertised TXT record so a discovered
// peer can be handed straight to room.Room.Join.
package discovery

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_songlist._tcp"

// Peer is one discovered replica.
type Peer struct {
	ID   string
	Addr string
	Port int
}

// Register advertises selfID and listenPort on the local network and
// returns a shutdown func. The registration is kept alive for the
// process lifetime by the caller holding onto the returned func until
// shutdown.
func Register(selfID string, listenPort int) (func(), error) {
	host, _ := os.Hostname()
	server, err := zeroconf.Register(
		fmt.Sprintf("songlist-%s-%s", selfID, host),
		serviceType,
		"local.",
		listenPort,
		[]string{"id=" + selfID},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("discovery: register: %w", err)
	}
	log.Printf("discovery: registered replica %s on port %d", selfID, listenPort)
	return server.Shutdown, nil
}

// Browse sweeps the local network for other replicas for the given
// window and returns every peer seen, skipping selfID's own
// advertisement.
func Browse(ctx context.Context, selfID string, window time.Duration) ([]Peer, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var peers []Peer
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			id := peerID(entry)
			if id == "" || id == selfID || len(entry.AddrIPv4) == 0 {
				continue
			}
			peers = append(peers, Peer{ID: id, Addr: entry.AddrIPv4[0].String(), Port: entry.Port})
		}
	}()

	browseCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()
	if err := resolver.Browse(browseCtx, serviceType, "local.", entries); err != nil {
		return nil, fmt.Errorf("discovery: browse: %w", err)
	}
	<-browseCtx.Done()
	<-done
	return peers, nil
}

func peerID(entry *zeroconf.ServiceEntry) string {
	for _, txt := range entry.Text {
		if strings.HasPrefix(txt, "id=") {
			return strings.TrimPrefix(txt, "id=")
		}
	}
	return ""
}
