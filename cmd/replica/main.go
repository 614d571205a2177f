// Command replica bootstraps one songlist replica: it reads its
// configuration from the environment, wires up a peer transport, runs
// an mDNS discovery sweep to find sibling replicas, starts the room
// actor, and serves the master-facing gateway until a shutdown signal
// arrives. Grounded on the node bootstrap binary's getenv/register/
// signal.Notify shape in the songlist protocol's teacher project.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/sumanthd032/songlist/internal/config"
	"github.com/sumanthd032/songlist/internal/discovery"
	"github.com/sumanthd032/songlist/internal/dtlog"
	"github.com/sumanthd032/songlist/internal/master"
	"github.com/sumanthd032/songlist/internal/room"
	"github.com/sumanthd032/songlist/internal/snapshot"
	"github.com/sumanthd032/songlist/internal/transport"
	"github.com/sumanthd032/songlist/internal/transport/redisbus"
	"github.com/sumanthd032/songlist/internal/transport/ws"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr, peers := bootstrapTransport(ctx, cfg)

	var log_ *dtlog.Log
	if cfg.BBoltPath != "" {
		l, err := dtlog.Open(cfg.BBoltPath)
		if err != nil {
			log.Fatalf("replica[%s]: dtlog: %v", cfg.ReplicaID, err)
		}
		defer l.Close()
		log_ = l
	}

	var snaps *snapshot.Store
	if cfg.PostgresURL != "" {
		s, err := snapshot.Open(ctx, cfg.PostgresURL)
		if err != nil {
			log.Printf("replica[%s]: snapshot store unavailable: %v", cfg.ReplicaID, err)
		} else {
			defer s.Close()
			snaps = s
		}
	}

	rm := room.New(room.Config{
		SelfID:         cfg.ReplicaID,
		Transport:      tr,
		BeatRate:       cfg.BeatRateMs,
		AliveThreshold: cfg.AliveThreshold,
		DTLog:          log_,
		Snapshots:      snaps,
	})
	rm.Join(peers...)
	go rm.Run(ctx)

	gw := master.New(rm)
	listen := cfg.Listen
	go func() {
		log.Printf("replica[%s]: master gateway listening on %s", cfg.ReplicaID, listen)
		if err := gw.ListenAndServe(ctx, listen); err != nil {
			log.Fatalf("replica[%s]: gateway: %v", cfg.ReplicaID, err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Printf("replica[%s]: shutting down", cfg.ReplicaID)
	cancel()
}

// bootstrapTransport builds the configured Transport and returns the
// peer ids discovered via mDNS (empty if discovery is disabled).
func bootstrapTransport(ctx context.Context, cfg config.Config) (transport.Transport, []string) {
	switch cfg.Transport {
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			log.Fatalf("replica[%s]: redis: %v", cfg.ReplicaID, err)
		}
		return redisbus.NewLink(ctx, cfg.ReplicaID, rdb), discoverPeerIDs(cfg)
	default:
		port := listenPort(cfg.Listen)
		link, err := ws.NewLink(cfg.ReplicaID, cfg.Listen)
		if err != nil {
			log.Fatalf("replica[%s]: ws transport: %v", cfg.ReplicaID, err)
		}
		var peerIDs []string
		if cfg.Discover {
			shutdown, err := discovery.Register(cfg.ReplicaID, port)
			if err != nil {
				log.Printf("replica[%s]: mDNS register failed: %v", cfg.ReplicaID, err)
			} else {
				go func() { <-ctx.Done(); shutdown() }()
			}
			peers, err := discovery.Browse(ctx, cfg.ReplicaID, cfg.DiscoverFor)
			if err != nil {
				log.Printf("replica[%s]: mDNS browse failed: %v", cfg.ReplicaID, err)
			}
			for _, p := range peers {
				addr := p.Addr + ":" + strconv.Itoa(p.Port)
				if err := link.DialPeer(ctx, p.ID, addr); err != nil {
					log.Printf("replica[%s]: dial peer %s failed: %v", cfg.ReplicaID, p.ID, err)
					continue
				}
				peerIDs = append(peerIDs, p.ID)
			}
		}
		return link, peerIDs
	}
}

func discoverPeerIDs(cfg config.Config) []string {
	if !cfg.Discover {
		return nil
	}
	peers, err := discovery.Browse(context.Background(), cfg.ReplicaID, cfg.DiscoverFor)
	if err != nil {
		log.Printf("replica[%s]: mDNS browse failed: %v", cfg.ReplicaID, err)
		return nil
	}
	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.ID)
	}
	return ids
}

func listenPort(addr string) int {
	i := strings.LastIndexByte(addr, ':')
	if i < 0 {
		return 0
	}
	port, err := strconv.Atoi(addr[i+1:])
	if err != nil {
		return 0
	}
	return port
}
