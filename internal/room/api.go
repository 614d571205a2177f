package room

import (
	"context"
	"fmt"

	"github.com/sumanthd032/songlist/internal/protocol"
	"github.com/sumanthd032/songlist/internal/transport"
)

// The exported methods below are the only way anything outside the
// actor's own goroutine touches a Room: they all just enqueue an event
// onto cmdChan. internal/master's HTTP/WebSocket gateway calls these on
// behalf of the (out-of-scope) external master driver.

func (r *Room) AddSong(ctx context.Context, name, url string) {
	r.enqueue(ctx, cmdAddSong{Name: name, URL: url})
}

func (r *Room) DeleteSong(ctx context.Context, name string) {
	r.enqueue(ctx, cmdDeleteSong{Name: name})
}

// GetSong looks name up and returns the URL, or "" on miss, without
// going through the wire "resp" line — callers inside the same process
// (e.g. internal/master) get the value directly. The room sends nothing
// to JoinMaster's Sink for a lookup; internal/master's /stream handler
// formats the "resp <url>" line itself.
func (r *Room) GetSong(ctx context.Context, name string) string {
	reply := make(chan string, 1)
	r.enqueue(ctx, cmdGetSong{Name: name, Reply: reply})
	select {
	case url := <-reply:
		return url
	case <-ctx.Done():
		return ""
	}
}

func (r *Room) JoinMaster(ctx context.Context, sink MasterSink) {
	r.enqueue(ctx, cmdJoinMaster{Sink: sink})
}

func (r *Room) RequestFullState(ctx context.Context) {
	r.enqueue(ctx, cmdRequestFullState{})
}

func (r *Room) enqueue(ctx context.Context, ev event) {
	select {
	case r.cmdChan <- ev:
	case <-ctx.Done():
	}
}

// decodeEvent translates a raw transport.Message into the room's
// internal event vocabulary, per the wire forms of §6.
func decodeEvent(m transport.Message) (event, error) {
	switch m.Line.Verb {
	case string(protocol.RoleParticipant), string(protocol.RoleCoordinator), string(protocol.RoleObserver):
		role, id, err := protocol.DecodeHeartbeat(m.Line)
		if err != nil {
			return nil, err
		}
		return evHeartbeat{From: id, Role: role}, nil
	case "votereq":
		u, err := protocol.DecodeVoteReq(m.Line)
		if err != nil {
			return nil, err
		}
		return evVoteReq{From: m.From, Update: u}, nil
	case "votereply":
		v, err := protocol.DecodeVoteReply(m.Line)
		if err != nil {
			return nil, err
		}
		return evVoteReply{From: m.From, Vote: v}, nil
	case "precommit":
		return evPreCommit{From: m.From}, nil
	case "ackprecommit":
		return evAckPreCommit{From: m.From}, nil
	case "commit":
		return evCommit{From: m.From}, nil
	case "abort":
		return evAbort{From: m.From}, nil
	case "statereq":
		return evStateReq{From: m.From}, nil
	case "state":
		c, err := protocol.DecodeStateReply(m.Line)
		if err != nil {
			return nil, err
		}
		return evStateReply{From: m.From, State: c}, nil
	case "fullstaterequest":
		return evFullStateRequest{From: m.From}, nil
	case "songlist":
		sl, err := protocol.DecodeSongList(m.Line)
		if err != nil {
			return nil, err
		}
		return evSongList{From: m.From, SongList: sl}, nil
	default:
		return nil, fmt.Errorf("unrecognized wire verb %q from %s", m.Line.Verb, m.From)
	}
}

// line is a small helper constructing a protocol.Line from a raw wire
// string, for handlers that format outgoing lines with the Encode*
// helpers in internal/protocol.
func line(raw string) protocol.Line {
	l, _ := protocol.DecodeLine(raw)
	return l
}
