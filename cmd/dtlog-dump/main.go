// Command dtlog-dump is a read-only replay tool over a replica's
// bbolt-backed commit-history log, for post-mortem inspection after a
// failover or a disputed decision.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sumanthd032/songlist/internal/dtlog"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <bbolt-path>\n", os.Args[0])
		os.Exit(2)
	}

	l, err := dtlog.Open(os.Args[1])
	if err != nil {
		log.Fatalf("dtlog-dump: %v", err)
	}
	defer l.Close()

	err = l.Replay(func(e dtlog.Entry) error {
		fmt.Printf("iter=%d decision=%s update=%q at=%s\n", e.Iter, e.Decision, e.Update, e.At.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	})
	if err != nil {
		log.Fatalf("dtlog-dump: replay: %v", err)
	}
}
