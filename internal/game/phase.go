package game

// Phase is the lifecycle stage of a duel session.
type Phase string

const (
	PhaseLobby              Phase = "lobby"
	PhaseWaitingForPlayer   Phase = "waiting_for_player"
	PhaseRoleSelection      Phase = "role_selection"
	PhaseHeadstartSelection Phase = "headstart_selection"
	PhaseWaitingForReady    Phase = "waiting_for_ready"
	PhasePlaying            Phase = "playing"
	PhaseFinished           Phase = "finished"
)

// Role is a player's side of the chase.
type Role string

const (
	RoleUnassigned Role = "unassigned"
	RoleHunter     Role = "hunter"
	RolePrey       Role = "prey"
)

// Complement returns the opposing role, or RoleUnassigned for anything
// that is not a playable role.
func (r Role) Complement() Role {
	switch r {
	case RoleHunter:
		return RolePrey
	case RolePrey:
		return RoleHunter
	default:
		return RoleUnassigned
	}
}
