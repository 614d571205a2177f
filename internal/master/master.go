// Package master is the replica's master-facing gateway: a gorilla/mux
// HTTP server exposing the add/delete/get REST surface directly, plus a
// /stream WebSocket carrying the raw §6 wire lines (join, resp, ack
// commit/abort, coordinator announcements) for a master driver that
// wants the line protocol verbatim. Grounded on the teacher server's
// gorilla/mux + gorilla/websocket wiring and on agent/main.go's
// writePump/readPump client idiom.
package master

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/sumanthd032/songlist/internal/protocol"
	"github.com/sumanthd032/songlist/internal/room"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// streamSink adapts a websocket connection to room.MasterSink.
type streamSink struct {
	send chan string
}

func (s *streamSink) Send(line string) {
	select {
	case s.send <- line:
	default:
	}
}

// Gateway wires a room.Room to HTTP.
type Gateway struct {
	rm     *room.Room
	router *mux.Router
}

// New builds the gateway's router. Call ListenAndServe to run it.
func New(rm *room.Room) *Gateway {
	g := &Gateway{rm: rm, router: mux.NewRouter()}
	g.router.HandleFunc("/add", g.handleAdd).Methods(http.MethodPost)
	g.router.HandleFunc("/delete", g.handleDelete).Methods(http.MethodPost)
	g.router.HandleFunc("/get/{name}", g.handleGet).Methods(http.MethodGet)
	g.router.HandleFunc("/stream", g.handleStream)
	return g
}

// ListenAndServe starts the HTTP server on addr, blocking until ctx is
// cancelled or the server fails.
func (g *Gateway) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type songReq struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

func (g *Gateway) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req songReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reqID := uuid.New().String()
	log.Printf("master: [%s] add %s", reqID, req.Name)
	g.rm.AddSong(r.Context(), req.Name, req.URL)
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req songReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reqID := uuid.New().String()
	log.Printf("master: [%s] delete %s", reqID, req.Name)
	g.rm.DeleteSong(r.Context(), req.Name)
	w.WriteHeader(http.StatusAccepted)
}

func (g *Gateway) handleGet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	url := g.rm.GetSong(r.Context(), name)
	json.NewEncoder(w).Encode(songReq{Name: name, URL: url})
}

// handleStream upgrades to a WebSocket carrying raw wire lines: the
// master sends "add <name> <url>" / "delete <name>" / "get <name>" /
// "join", and receives "resp <url>", "ack commit", "ack abort", and
// coordinator-change announcements.
func (g *Gateway) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sink := &streamSink{send: make(chan string, 64)}
	g.rm.JoinMaster(ctx, sink)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for line := range sink.send {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}
		l, err := protocol.DecodeLine(string(raw))
		if err != nil {
			continue
		}
		g.handleMasterLine(ctx, l, sink)
	}
	<-done
}

func (g *Gateway) handleMasterLine(ctx context.Context, l protocol.Line, sink *streamSink) {
	switch l.Verb {
	case "add":
		if len(l.Args) == 2 {
			g.rm.AddSong(ctx, l.Args[0], l.Args[1])
		}
	case "delete":
		if len(l.Args) == 1 {
			g.rm.DeleteSong(ctx, l.Args[0])
		}
	case "get":
		if len(l.Args) == 1 {
			url := g.rm.GetSong(ctx, l.Args[0])
			sink.Send(protocol.EncodeResp(url))
		}
	case "join":
		g.rm.RequestFullState(ctx)
	}
}
