package room

import (
	"log"

	"github.com/sumanthd032/songlist/internal/dtlog"
	"github.com/sumanthd032/songlist/internal/protocol"
)

// persistTerminal records a terminal (Commit/Abort) transition to the
// commit-history log and, on Commit, best-effort refreshes the snapshot
// store. Neither write is on the decision path: a nil dtlog/snaps
// disables the corresponding write, and a failing write is logged, not
// retried or escalated — termination already happened in memory.
func (r *Room) persistTerminal(d protocol.Decision, upd protocol.Update) {
	if r.dtlog != nil {
		entry := dtlog.Entry{
			Iter:     r.st.commitIter,
			Decision: d.String(),
			Update:   upd.String(),
		}
		if err := r.dtlog.Append(entry); err != nil {
			log.Printf("room[%s]: dtlog append failed: %v", r.selfID, err)
		}
	}
	if r.snaps != nil && d == protocol.DecisionCommit {
		if err := r.snaps.Save(r.st.songList, r.st.commitIter); err != nil {
			log.Printf("room[%s]: snapshot save failed: %v", r.selfID, err)
		}
	}
}
