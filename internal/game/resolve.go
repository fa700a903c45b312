package game

// BoardSize is the number of cells on the track. Cell 0 is the start,
// cell BoardSize-1 is the prey's goal.
const BoardSize = 9

const goalCell = BoardSize - 1

// RoundOutcome is the result of resolving one round.
type RoundOutcome struct {
	HunterCorrect bool
	PreyCorrect   bool
	HunterPos     int
	PreyPos       int
	Winner        Role // RoleUnassigned when the chase continues
}

// ResolveRound computes a round's outcome from both recorded answers and
// the current positions. It is a pure function; the session applies the
// result.
//
// The win check order is fixed: the hunter wins if it has reached or
// passed the prey, otherwise the prey wins if it has reached the goal
// cell. Ties on the same cell therefore go to the hunter.
func ResolveRound(hunterPos, preyPos, hunterAnswer, preyAnswer, correct int) RoundOutcome {
	out := RoundOutcome{
		HunterCorrect: isCorrect(hunterAnswer, correct),
		PreyCorrect:   isCorrect(preyAnswer, correct),
		HunterPos:     hunterPos,
		PreyPos:       preyPos,
		Winner:        RoleUnassigned,
	}

	if out.HunterCorrect {
		out.HunterPos = clampCell(out.HunterPos + 1)
	}
	if out.PreyCorrect {
		out.PreyPos = clampCell(out.PreyPos + 1)
	}

	switch {
	case out.HunterPos >= out.PreyPos:
		out.Winner = RoleHunter
	case out.PreyPos >= goalCell:
		out.Winner = RolePrey
	}
	return out
}

func isCorrect(answer, correct int) bool {
	return answer != AnswerNone && answer == correct
}

func clampCell(pos int) int {
	if pos < 0 {
		return 0
	}
	if pos > goalCell {
		return goalCell
	}
	return pos
}
