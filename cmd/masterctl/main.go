// Command masterctl is a demo master driver: it connects to a
// replica's /stream gateway and issues add/delete/get/join commands
// from the command line, printing whatever wire lines come back.
// Its reconnect-across-known-addresses loop is grounded on the
// Client.Reconnect/Request shape from the teacher pack's Paxos client.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type client struct {
	addrs []string
	conn  *websocket.Conn
}

func (c *client) reconnect() error {
	var err error
	for _, addr := range c.addrs {
		var conn *websocket.Conn
		conn, _, err = websocket.DefaultDialer.Dial("ws://"+addr+"/stream", nil)
		if err == nil {
			c.conn = conn
			return nil
		}
	}
	return err
}

func (c *client) request(line string) error {
	if c.conn == nil {
		if err := c.reconnect(); err != nil {
			return err
		}
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
		c.conn = nil
		if err := c.reconnect(); err != nil {
			return err
		}
		return c.conn.WriteMessage(websocket.TextMessage, []byte(line))
	}
	return nil
}

func main() {
	addrsFlag := flag.String("replicas", "localhost:9090", "comma-separated replica addresses")
	flag.Parse()

	c := &client{addrs: strings.Split(*addrsFlag, ",")}
	if err := c.reconnect(); err != nil {
		log.Fatalf("masterctl: could not reach any replica: %v", err)
	}
	defer c.conn.Close()

	go func() {
		for {
			_, raw, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			fmt.Println("<-", string(raw))
		}
	}()

	if err := c.request("join"); err != nil {
		log.Fatalf("masterctl: join: %v", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("masterctl ready; commands: add <name> <url> | delete <name> | get <name>")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := c.request(line); err != nil {
			log.Printf("masterctl: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
