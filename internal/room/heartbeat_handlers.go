package room

import "github.com/sumanthd032/songlist/internal/protocol"

// handleHeartbeat is §4.1's "on receiving a heartbeat (id, role, ref)":
// update beatmap, and if the announced role is Coordinator, adopt the
// sender as this replica's coordinator.
func (r *Room) handleHeartbeat(e evHeartbeat) {
	r.det.Observe(e.From, e.Role)
	r.st.actors[e.From] = struct{}{}
	if e.Role == protocol.RoleCoordinator {
		r.st.coordinator = e.From
	}
}
