package room

import "github.com/sumanthd032/songlist/internal/protocol"

// Phase is the tagged CommitPhase variant from the songlist protocol's
// data model. Every concrete type below is one named sub-state; this
// package's handlers switch on (message, phase) pairs per the spec's
// dispatch rule.
type Phase interface {
	isPhase()
	String() string
}

type PhaseStart struct{}

func (PhaseStart) isPhase()      {}
func (PhaseStart) String() string { return "start" }

type PhaseCoordWaiting struct{}

func (PhaseCoordWaiting) isPhase()      {}
func (PhaseCoordWaiting) String() string { return "coord-waiting" }

// PhaseCoordInitCommit: VoteReq broadcast, collecting Yes votes.
// VoteSet is a set (map to struct{}) of peer ids that have voted Yes so far.
type PhaseCoordInitCommit struct {
	Update  protocol.Update
	UpSet   []string
	VoteSet map[string]struct{}
}

func (PhaseCoordInitCommit) isPhase()      {}
func (PhaseCoordInitCommit) String() string { return "coord-init-commit" }

// PhaseCoordCommitable: PreCommit broadcast, collecting PreCommit acks.
type PhaseCoordCommitable struct {
	Update protocol.Update
	UpSet  []string
	AckSet map[string]struct{}
}

func (PhaseCoordCommitable) isPhase()      {}
func (PhaseCoordCommitable) String() string { return "coord-commitable" }

type PhaseCoordCommitted struct{}

func (PhaseCoordCommitted) isPhase()      {}
func (PhaseCoordCommitted) String() string { return "coord-committed" }

type PhaseCoordAborted struct{}

func (PhaseCoordAborted) isPhase()      {}
func (PhaseCoordAborted) String() string { return "coord-aborted" }

type PhaseParticipantInitCommit struct {
	Update protocol.Update
	UpSet  []string
}

func (PhaseParticipantInitCommit) isPhase()      {}
func (PhaseParticipantInitCommit) String() string { return "participant-init-commit" }

type PhaseParticipantCommitable struct {
	Update protocol.Update
	UpSet  []string
}

func (PhaseParticipantCommitable) isPhase()      {}
func (PhaseParticipantCommitable) String() string { return "participant-commitable" }

type PhaseParticipantCommitted struct{}

func (PhaseParticipantCommitted) isPhase()      {}
func (PhaseParticipantCommitted) String() string { return "participant-committed" }

type PhaseParticipantAborted struct{}

func (PhaseParticipantAborted) isPhase()      {}
func (PhaseParticipantAborted) String() string { return "participant-aborted" }

// PhaseCoordGatheringState is the new coordinator's termination-protocol
// sub-state (§4.5): StateReq broadcast, collecting CommitState replies
// before deciding. It isn't one of the spec's named CommitPhase values
// because §4.5 layers the termination protocol on top of the regular
// phase list rather than extending it. handleStateReply and
// handleStateReqReplyTimeout are the handlers that act on it;
// handleVoteReply, handlePreCommit and handleAckPreCommit log and
// ignore messages that arrive while in it.
type PhaseCoordGatheringState struct {
	UpSet      []string
	Responses  map[string]protocol.CommitState
	SelfUpdate protocol.Update
}

func (PhaseCoordGatheringState) isPhase()      {}
func (PhaseCoordGatheringState) String() string { return "coord-gathering-state" }

// localCommitState maps a live commit phase to the CommitState a
// termination StateReq reply reports for it.
func localCommitState(p Phase) protocol.CommitState {
	switch p.(type) {
	case PhaseCoordCommitted, PhaseParticipantCommitted:
		return protocol.StateCommitted
	case PhaseCoordAborted, PhaseParticipantAborted, PhaseStart, PhaseCoordWaiting:
		return protocol.StateAborted
	case PhaseCoordCommitable, PhaseParticipantCommitable:
		return protocol.StateCommittable
	case PhaseCoordInitCommit, PhaseParticipantInitCommit:
		return protocol.StateUncertain
	default:
		return protocol.StateAborted
	}
}
