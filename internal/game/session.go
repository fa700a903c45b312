package game

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Config holds the timing constants of a duel. Zero values are replaced
// by DefaultConfig values at session creation.
type Config struct {
	AnswerWindow     time.Duration
	RevealDelay      time.Duration
	GameOverDelay    time.Duration
	ReadyPromptDelay time.Duration
	FetchTimeout     time.Duration
	ReconnectGrace   time.Duration
}

// DefaultConfig returns the default duel timings.
func DefaultConfig() Config {
	return Config{
		AnswerWindow:     20 * time.Second,
		RevealDelay:      3 * time.Second,
		GameOverDelay:    2 * time.Second,
		ReadyPromptDelay: 3 * time.Second,
		FetchTimeout:     5 * time.Second,
		ReconnectGrace:   60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.AnswerWindow <= 0 {
		c.AnswerWindow = def.AnswerWindow
	}
	if c.RevealDelay <= 0 {
		c.RevealDelay = def.RevealDelay
	}
	if c.GameOverDelay <= 0 {
		c.GameOverDelay = def.GameOverDelay
	}
	if c.ReadyPromptDelay <= 0 {
		c.ReadyPromptDelay = def.ReadyPromptDelay
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = def.FetchTimeout
	}
	if c.ReconnectGrace <= 0 {
		c.ReconnectGrace = def.ReconnectGrace
	}
	return c
}

// Session is the authoritative state of one duel. Every mutation goes
// through its mutex, so handling is serialized per room; sessions in
// different rooms are fully independent.
type Session struct {
	code    string
	cfg     Config
	clock   clockwork.Clock
	sched   *Scheduler
	source  QuestionSource
	bcast   Broadcaster
	onClose func(code string)

	mu            sync.Mutex
	phase         Phase
	players       []*Player
	headstart     int
	current       *Question
	questionIndex int
	outcome       *RoundOutcome
	rematchVotes  map[string]struct{}

	// round is a generation counter bumped on every transition that
	// supersedes pending timers. Timer callbacks captured an older value
	// and become no-ops.
	round int

	prefetched   chan Question
	pendingStart bool
	closed       bool
	lastActive   time.Time

	newID func() string
}

func newSession(code string, cfg Config, clock clockwork.Clock, source QuestionSource, bcast Broadcaster, newID func() string, onClose func(code string)) *Session {
	return &Session{
		code:         code,
		cfg:          cfg.withDefaults(),
		clock:        clock,
		sched:        NewScheduler(clock),
		source:       source,
		bcast:        bcast,
		onClose:      onClose,
		phase:        PhaseLobby,
		rematchVotes: make(map[string]struct{}),
		prefetched:   make(chan Question, 1),
		lastActive:   clock.Now(),
		newID:        newID,
	}
}

// Code returns the room code.
func (s *Session) Code() string {
	return s.code
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// LastActive reports when the session last handled an action, for the
// registry's idle reaper.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Join adds a player to the session and returns the identity token the
// client must present on rejoin. The second join advances the session to
// role selection.
func (s *Session) Join(connID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrRoomNotFound
	}
	if len(s.players) >= 2 {
		return "", ErrRoomFull
	}
	if s.phase != PhaseLobby && s.phase != PhaseWaitingForPlayer {
		return "", ErrBadPhase
	}

	p := newPlayer(connID, s.newID())
	s.players = append(s.players, p)
	s.touch()

	s.bcast.SendToConn(connID, NewEvent(s.code, EventGameJoined, GameJoinedPayload{
		Code:     s.code,
		PlayerID: p.ID,
	}))

	if len(s.players) == 2 {
		s.setPhase(PhaseRoleSelection)
	} else {
		s.setPhase(PhaseWaitingForPlayer)
	}
	s.broadcastRoles()

	log.Info().Str("room", s.code).Str("player_id", p.ID).Int("players", len(s.players)).Msg("player joined")
	return p.ID, nil
}

// Rejoin rebinds a disconnected player record to a new connection and
// pushes a full state snapshot to it.
func (s *Session) Rejoin(playerID, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrRejoinFailed
	}
	p := s.findPlayer(playerID)
	if p == nil || p.Connected {
		return ErrRejoinFailed
	}

	p.ConnID = connID
	p.Connected = true
	p.Paused = false
	s.touch()
	s.sched.Cancel(graceKind(p.ID))

	s.broadcast(EventPlayerReconnected, PlayerPresencePayload{PlayerID: p.ID})
	s.bcast.SendToConn(connID, NewEvent(s.code, EventGameStateSync, s.snapshotLocked(p.ID)))

	log.Info().Str("room", s.code).Str("player_id", p.ID).Msg("player rejoined")
	return nil
}

// SelectRole assigns the requested role. The first valid selection also
// forces the complementary role onto the other player, so roles are
// always disjoint regardless of message ordering. A repeated selection of
// the role a player already holds is a no-op.
func (s *Session) SelectRole(playerID string, role Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if role != RoleHunter && role != RolePrey {
		return ErrBadRole
	}
	p := s.findPlayer(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.Role == role {
		return nil
	}
	if s.phase != PhaseRoleSelection {
		return ErrBadPhase
	}
	if p.Role != RoleUnassigned {
		return ErrRoleAssigned
	}
	other := s.otherPlayer(playerID)
	if other != nil && other.Role == role {
		return ErrRoleTaken
	}

	p.Role = role
	if other != nil && other.Role == RoleUnassigned {
		other.Role = role.Complement()
	}
	s.touch()
	s.broadcastRoles()

	if s.rolesAssigned() {
		s.setPhase(PhaseHeadstartSelection)
	}
	return nil
}

// SelectHeadstart sets the prey's starting cell (2, 3 or 4) and opens the
// ready handshake for round one.
func (s *Session) SelectHeadstart(playerID string, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseHeadstartSelection {
		return ErrBadPhase
	}
	p := s.findPlayer(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.Role != RolePrey {
		return ErrNotPrey
	}
	if n < 2 || n > 4 {
		return ErrBadHeadstart
	}

	s.headstart = n
	for _, pl := range s.players {
		if pl.Role == RolePrey {
			pl.Position = n
		} else {
			pl.Position = 0
		}
	}
	s.touch()
	s.enterWaitingForReady()
	return nil
}

// Ready marks a player ready. When both players are ready the round
// starts with the prefetched question, or waits on the fetch up to the
// fetch timeout before falling back to the local question.
func (s *Session) Ready(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseWaitingForReady {
		return ErrBadPhase
	}
	p := s.findPlayer(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}

	p.Ready = true
	s.touch()
	s.broadcastRoles()

	if !s.bothReady() {
		return nil
	}

	select {
	case q := <-s.prefetched:
		s.beginRound(q)
	default:
		s.pendingStart = true
		gen := s.round
		s.sched.Schedule(timerFetch, s.cfg.FetchTimeout, func() {
			s.fetchTimedOut(gen)
		})
	}
	return nil
}

// SubmitAnswer records a player's answer for the current round. The
// second call in the same round is a no-op. Resolution is triggered only
// once both players have a recorded answer.
func (s *Session) SubmitAnswer(playerID string, answer int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhasePlaying {
		return ErrBadPhase
	}
	p := s.findPlayer(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if answer < 0 || answer >= OptionCount {
		return ErrBadAnswer
	}
	if p.Answered {
		return nil
	}

	p.Answer = answer
	p.Answered = true
	s.touch()
	s.broadcast(EventPlayerAnswered, PlayerAnsweredPayload{PlayerID: p.ID})

	if s.bothAnswered() {
		s.resolveRoundLocked()
	}
	return nil
}

// RequestRematch records a rematch vote. The session resets to role
// selection only once both players have voted; one player cannot
// unilaterally wipe the other's result screen.
func (s *Session) RequestRematch(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseFinished {
		return ErrBadPhase
	}
	p := s.findPlayer(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}

	s.rematchVotes[p.ID] = struct{}{}
	s.touch()
	s.broadcast(EventRematchRequested, RematchRequestedPayload{
		PlayerID: p.ID,
		Votes:    len(s.rematchVotes),
	})

	if len(s.players) == 2 && len(s.rematchVotes) == len(s.players) {
		s.resetForRematch()
	}
	return nil
}

// Pause sets the soft pause flag (visibility lost). It does not break the
// logical connection and never tears the session down.
func (s *Session) Pause(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPlayer(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	p.Paused = true
	s.touch()
	s.broadcast(EventPlayerPaused, PlayerPresencePayload{PlayerID: p.ID})
	return nil
}

// Resume clears the pause flag and pushes a resync snapshot, provided the
// connection still matches the player's bound connection.
func (s *Session) Resume(playerID, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.findPlayer(playerID)
	if p == nil {
		return ErrUnknownPlayer
	}
	if p.ConnID != connID {
		return ErrRejoinFailed
	}
	p.Paused = false
	s.touch()
	s.broadcast(EventPlayerResumed, PlayerPresencePayload{PlayerID: p.ID})
	s.bcast.SendToConn(connID, NewEvent(s.code, EventGameStateSync, s.snapshotLocked(p.ID)))
	return nil
}

// Disconnect marks a player as disconnected and arms that player's
// reconnect grace timer. The round is not auto-resolved; the answer
// window keeps running. A stale disconnect from a connection that has
// already been replaced by a rejoin is ignored.
func (s *Session) Disconnect(playerID, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	p := s.findPlayer(playerID)
	if p == nil || !p.Connected || p.ConnID != connID {
		return
	}

	p.Connected = false
	p.ConnID = ""
	p.Paused = false
	s.touch()
	s.broadcast(EventPlayerDisconnected, PlayerPresencePayload{PlayerID: p.ID})

	s.sched.Schedule(graceKind(p.ID), s.cfg.ReconnectGrace, func() {
		s.graceExpired(p.ID)
	})
	log.Info().Str("room", s.code).Str("player_id", p.ID).Msg("player disconnected, grace timer armed")
}

// Close tears the session down: all timers are cancelled, the room is
// notified, and the session is removed from its registry.
func (s *Session) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(reason)
}

// Snapshot builds the full state snapshot for one player's connection.
func (s *Session) Snapshot(forPlayer string) StateSyncPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(forPlayer)
}

// timer callbacks

func (s *Session) fetchTimedOut(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.round != gen || s.phase != PhaseWaitingForReady || !s.pendingStart {
		return
	}
	s.pendingStart = false
	log.Warn().Str("room", s.code).Msg("question fetch timed out, using fallback question")
	s.beginRound(FallbackQuestion())
}

func (s *Session) answerWindowExpired(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.round != gen || s.phase != PhasePlaying {
		return
	}
	var timedOut []string
	for _, p := range s.players {
		if !p.Answered {
			p.Answer = AnswerNone
			p.Answered = true
			timedOut = append(timedOut, p.ID)
		}
	}
	log.Debug().Str("room", s.code).Msg("answer window expired")
	s.resolveRoundLocked()
	for _, id := range timedOut {
		s.broadcast(EventPlayerAnswered, PlayerAnsweredPayload{PlayerID: id})
	}
}

func (s *Session) revealResults(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.round != gen || s.phase != PhasePlaying || s.outcome == nil {
		return
	}
	out := *s.outcome

	// Arm the next stage before broadcasting so the room never observes
	// results without a follow-up transition pending.
	if out.Winner != RoleUnassigned {
		s.sched.Schedule(timerGameOver, s.cfg.GameOverDelay, func() {
			s.announceWinner(gen)
		})
	} else {
		s.sched.Schedule(timerReadyPrompt, s.cfg.ReadyPromptDelay, func() {
			s.nextRoundPrompt(gen)
		})
	}

	s.broadcast(EventRoundResults, RoundResultsPayload{
		Results:       s.resultsLocked(out),
		CorrectAnswer: s.current.Correct,
		Positions:     Positions{Hunter: out.HunterPos, Prey: out.PreyPos},
	})
}

func (s *Session) announceWinner(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.round != gen || s.phase != PhasePlaying || s.outcome == nil {
		return
	}
	winner := s.outcome.Winner
	s.rematchVotes = make(map[string]struct{})
	s.setPhase(PhaseFinished)

	var winnerID string
	if p := s.playerByRole(winner); p != nil {
		winnerID = p.ID
	}
	s.broadcast(EventGameOver, GameOverPayload{Winner: winner, PlayerID: winnerID})
	log.Info().Str("room", s.code).Str("winner", string(winner)).Msg("game over")
}

func (s *Session) nextRoundPrompt(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.round != gen || s.phase != PhasePlaying {
		return
	}
	s.enterWaitingForReady()
}

func (s *Session) graceExpired(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	p := s.findPlayer(playerID)
	if p == nil || p.Connected {
		return
	}
	log.Info().Str("room", s.code).Str("player_id", playerID).Msg("reconnect grace expired, closing session")
	s.closeLocked("abandoned")
}

// internal transitions, caller holds s.mu

func (s *Session) enterWaitingForReady() {
	s.round++
	s.pendingStart = false
	for _, p := range s.players {
		p.resetRound()
	}
	s.setPhase(PhaseWaitingForReady)
	s.broadcast(EventWaitingForReady, WaitingForReadyPayload{Positions: s.positionsLocked()})
	s.startPrefetch()
}

// startPrefetch fetches the next question in parallel with the ready
// handshake so the transition to playing does not stall on the source.
func (s *Session) startPrefetch() {
	if len(s.prefetched) > 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FetchTimeout)
		defer cancel()

		q, err := s.source.NextQuestion(ctx)
		if err != nil || !q.Valid() {
			if err != nil {
				log.Warn().Err(err).Str("room", s.code).Msg("question source failed, using fallback")
			} else {
				log.Warn().Str("room", s.code).Msg("question source returned invalid question, using fallback")
			}
			q = FallbackQuestion()
		}
		s.deliverQuestion(q)
	}()
}

func (s *Session) deliverQuestion(q Question) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.pendingStart && s.phase == PhaseWaitingForReady {
		s.sched.Cancel(timerFetch)
		s.pendingStart = false
		s.beginRound(q)
		return
	}
	select {
	case s.prefetched <- q:
	default:
	}
}

func (s *Session) beginRound(q Question) {
	s.round++
	s.pendingStart = false
	gen := s.round
	s.current = &q
	s.questionIndex++
	s.outcome = nil
	for _, p := range s.players {
		p.resetRound()
	}
	s.setPhase(PhasePlaying)

	s.sched.Schedule(timerAnswerWindow, s.cfg.AnswerWindow, func() {
		s.answerWindowExpired(gen)
	})

	if s.questionIndex == 1 {
		s.broadcast(EventGameStart, GameStartPayload{
			Positions: s.positionsLocked(),
			Question:  q.view(),
			Round:     s.questionIndex,
		})
	} else {
		s.broadcast(EventNextQuestion, NextQuestionPayload{
			Question:  q.view(),
			Positions: s.positionsLocked(),
			Round:     s.questionIndex,
		})
	}
	log.Debug().Str("room", s.code).Int("round", s.questionIndex).Msg("round started")
}

func (s *Session) resolveRoundLocked() {
	s.sched.Cancel(timerAnswerWindow)

	hunter := s.playerByRole(RoleHunter)
	prey := s.playerByRole(RolePrey)
	if hunter == nil || prey == nil || s.current == nil {
		return
	}

	out := ResolveRound(hunter.Position, prey.Position, hunter.Answer, prey.Answer, s.current.Correct)
	hunter.Position = out.HunterPos
	prey.Position = out.PreyPos
	s.outcome = &out

	gen := s.round
	s.sched.Schedule(timerReveal, s.cfg.RevealDelay, func() {
		s.revealResults(gen)
	})
}

func (s *Session) resetForRematch() {
	for _, p := range s.players {
		p.resetMatch()
	}
	s.headstart = 0
	s.current = nil
	s.questionIndex = 0
	s.outcome = nil
	s.rematchVotes = make(map[string]struct{})
	s.round++
	s.pendingStart = false

	// Drop any question prefetched for the abandoned match.
	select {
	case <-s.prefetched:
	default:
	}

	s.setPhase(PhaseRoleSelection)
	s.broadcastRoles()
	log.Info().Str("room", s.code).Msg("rematch accepted, session reset")
}

func (s *Session) closeLocked(reason string) {
	if s.closed {
		return
	}
	s.closed = true
	s.round++
	s.sched.CancelAll()
	s.broadcast(EventSessionClosed, SessionClosedPayload{Reason: reason})
	if s.onClose != nil {
		s.onClose(s.code)
	}
	log.Info().Str("room", s.code).Str("reason", reason).Msg("session closed")
}

func (s *Session) setPhase(p Phase) {
	s.phase = p
	s.broadcast(EventPhaseChange, PhaseChangePayload{Phase: p})
}

// helpers, caller holds s.mu

func (s *Session) touch() {
	s.lastActive = s.clock.Now()
}

func (s *Session) broadcast(t EventType, payload any) {
	s.bcast.BroadcastRoom(s.code, NewEvent(s.code, t, payload))
}

func (s *Session) broadcastRoles() {
	s.broadcast(EventRolesUpdated, RolesUpdatedPayload{Players: s.viewsLocked()})
}

func (s *Session) findPlayer(id string) *Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) otherPlayer(id string) *Player {
	for _, p := range s.players {
		if p.ID != id {
			return p
		}
	}
	return nil
}

func (s *Session) playerByRole(r Role) *Player {
	for _, p := range s.players {
		if p.Role == r {
			return p
		}
	}
	return nil
}

func (s *Session) rolesAssigned() bool {
	if len(s.players) != 2 {
		return false
	}
	for _, p := range s.players {
		if p.Role == RoleUnassigned {
			return false
		}
	}
	return true
}

func (s *Session) bothReady() bool {
	if len(s.players) != 2 {
		return false
	}
	for _, p := range s.players {
		if !p.Ready {
			return false
		}
	}
	return true
}

func (s *Session) bothAnswered() bool {
	if len(s.players) != 2 {
		return false
	}
	for _, p := range s.players {
		if !p.Answered {
			return false
		}
	}
	return true
}

func (s *Session) viewsLocked() []PlayerView {
	views := make([]PlayerView, 0, len(s.players))
	for _, p := range s.players {
		views = append(views, p.view())
	}
	return views
}

func (s *Session) positionsLocked() Positions {
	var pos Positions
	if h := s.playerByRole(RoleHunter); h != nil {
		pos.Hunter = h.Position
	}
	if p := s.playerByRole(RolePrey); p != nil {
		pos.Prey = p.Position
	}
	return pos
}

func (s *Session) resultsLocked(out RoundOutcome) []PlayerResult {
	results := make([]PlayerResult, 0, len(s.players))
	for _, p := range s.players {
		correct := out.PreyCorrect
		if p.Role == RoleHunter {
			correct = out.HunterCorrect
		}
		results = append(results, PlayerResult{
			PlayerID: p.ID,
			Role:     p.Role,
			Correct:  correct,
			Answer:   p.Answer,
			Position: p.Position,
		})
	}
	return results
}

func (s *Session) snapshotLocked(forPlayer string) StateSyncPayload {
	snap := StateSyncPayload{
		Code:          s.code,
		Phase:         s.phase,
		Players:       s.viewsLocked(),
		You:           forPlayer,
		Headstart:     s.headstart,
		QuestionIndex: s.questionIndex,
	}
	if s.phase == PhasePlaying && s.current != nil {
		view := s.current.view()
		snap.Question = &view
	}
	return snap
}
