package game

// AnswerNone is the sentinel recorded when a player's answer window
// expires. It sits outside the valid option range [0,2] so it can never
// match a question's correct index.
const AnswerNone = -1

// Player is one participant's record inside a session. Records are never
// removed while the session lives; a disconnect only clears ConnID and
// the Connected flag so the player can rejoin with the same identity.
type Player struct {
	ID        string // stable identity token, survives reconnects
	ConnID    string // current transport connection, empty while disconnected
	Role      Role
	Position  int
	Answer    int
	Answered  bool
	Ready     bool
	Connected bool
	Paused    bool
}

func newPlayer(connID string, id string) *Player {
	return &Player{
		ID:        id,
		ConnID:    connID,
		Role:      RoleUnassigned,
		Answer:    AnswerNone,
		Connected: true,
	}
}

// resetRound clears the per-round fields at the start of every round.
func (p *Player) resetRound() {
	p.Answer = AnswerNone
	p.Answered = false
	p.Ready = false
}

// resetMatch returns the player to pre-game state for a rematch.
func (p *Player) resetMatch() {
	p.Role = RoleUnassigned
	p.Position = 0
	p.resetRound()
}

// PlayerView is the wire representation of a player record.
type PlayerView struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Position  int    `json:"position"`
	Ready     bool   `json:"ready"`
	Answered  bool   `json:"answered"`
	Connected bool   `json:"connected"`
	Paused    bool   `json:"paused"`
}

func (p *Player) view() PlayerView {
	return PlayerView{
		ID:        p.ID,
		Role:      p.Role,
		Position:  p.Position,
		Ready:     p.Ready,
		Answered:  p.Answered,
		Connected: p.Connected,
		Paused:    p.Paused,
	}
}
