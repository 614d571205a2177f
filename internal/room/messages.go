package room

import "github.com/sumanthd032/songlist/internal/protocol"

// event is anything the room actor's mailbox can hold: a peer wire
// message, a master-facing command, or a scheduled timeout. The actor
// processes exactly one to completion before dequeuing the next.
type event interface{}

// --- peer wire events (decoded from transport.Message by recvLoop) ---

type evHeartbeat struct {
	From string
	Role protocol.Role
}

type evVoteReq struct {
	From   string
	Update protocol.Update
}

type evVoteReply struct {
	From string
	Vote protocol.Vote
}

type evPreCommit struct{ From string }

type evAckPreCommit struct{ From string }

type evCommit struct{ From string }

type evAbort struct{ From string }

type evStateReq struct{ From string }

type evStateReply struct {
	From  string
	State protocol.CommitState
}

type evFullStateRequest struct{ From string }

type evSongList struct {
	From     string
	SongList map[string]string
}

// --- master-facing / bootstrap commands ---

type cmdAddSong struct {
	Name, URL string
}

type cmdDeleteSong struct {
	Name string
}

type cmdGetSong struct {
	Name  string
	Reply chan string
}

type cmdJoinMaster struct {
	Sink MasterSink
}

type cmdRequestFullState struct{}

type cmdDetermineCoordinator struct{}

// --- iteration-tagged timeouts; SourceIter satisfies timeout.Msg ---

type toVoteReply struct{ Iter int }

func (t toVoteReply) SourceIter() int { return t.Iter }

type toAckPreCommit struct{ Iter int }

func (t toAckPreCommit) SourceIter() int { return t.Iter }

type toPreCommit struct{ Iter int }

func (t toPreCommit) SourceIter() int { return t.Iter }

type toCommit struct{ Iter int }

func (t toCommit) SourceIter() int { return t.Iter }

type toStateReq struct{ Iter int }

func (t toStateReq) SourceIter() int { return t.Iter }

type toStateReqReply struct{ Iter int }

func (t toStateReqReply) SourceIter() int { return t.Iter }

// MasterSink is how the room actor replies to the external master
// driver; internal/master implements it over an HTTP/WebSocket gateway,
// tests implement it over a plain channel.
type MasterSink interface {
	Send(line string)
}
