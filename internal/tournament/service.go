package tournament

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/coreerrors"
	"github.com/ironspire/pvpcore/notify"
)

// ArenaDispatcher is the subset of arena-construction behavior the
// tournament engine needs; implemented by a thin adapter around
// nk.MatchCreate in main.go, keeping this package
// free of a direct arena import. Tournament wraps matchmaking and arena
// play but does not own either component.
type ArenaDispatcher interface {
	CreateArenaMatch(ctx context.Context, mode string, p1, p2 string) (matchID string, err error)
}

// Service owns every tournament instance. Each Tournament exclusively owns
// its own bracket; Service is simply the keyed store plus the
// tick-driven state machine, a single owning store in place of
// reference-counted handles.
type Service struct {
	nk     runtime.NakamaModule
	arena  ArenaDispatcher
	logger runtime.Logger

	mu           sync.Mutex
	tournaments  map[string]*Tournament
}

// New constructs a tournament service.
func New(nk runtime.NakamaModule, arena ArenaDispatcher, logger runtime.Logger) *Service {
	return &Service{nk: nk, arena: arena, logger: logger, tournaments: make(map[string]*Tournament)}
}

// Create starts a new tournament in Registration.
func (s *Service) Create(cfg Config, now int64) (*Tournament, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrInternal, err)
	}
	t := &Tournament{
		ID:                  id.String(),
		Config:              cfg,
		Participants:        make(map[string]*Participant),
		State:               StateRegistration,
		CreatedAtUnix:       now,
		RegistrationEndUnix: now + cfg.RegistrationWindowSeconds,
	}
	s.mu.Lock()
	s.tournaments[t.ID] = t
	s.mu.Unlock()
	return t, nil
}

// Register adds a participant during the Registration phase.
func (s *Service) Register(tournamentID, playerID string, rating int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return coreerrors.ErrUnknownTournament
	}
	if t.State != StateRegistration {
		return coreerrors.ErrWrongPhase
	}
	if _, exists := t.Participants[playerID]; exists {
		return coreerrors.ErrAlreadyRegistered
	}
	if t.Config.MaxParticipants > 0 && len(t.Participants) >= t.Config.MaxParticipants {
		return coreerrors.ErrTournamentFull
	}
	t.Participants[playerID] = &Participant{PlayerID: playerID, Rating: rating}
	return nil
}

// CheckIn marks a participant checked in during the CheckIn phase.
func (s *Service) CheckIn(tournamentID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return coreerrors.ErrUnknownTournament
	}
	if t.State != StateCheckIn {
		return coreerrors.ErrWrongPhase
	}
	p, ok := t.Participants[playerID]
	if !ok {
		return coreerrors.ErrUnknownPlayer
	}
	p.CheckedIn = true
	return nil
}

// Standings returns the full bracket standings snapshot.
func (s *Service) Standings(tournamentID string) (*Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tournaments[tournamentID]
	if !ok {
		return nil, coreerrors.ErrUnknownTournament
	}
	return t, nil
}

// Tick drives every tournament's state machine forward, dispatching ready
// bracket slots to the arena engine.
func (s *Service) Tick(ctx context.Context, now int64) {
	s.mu.Lock()
	tournaments := make([]*Tournament, 0, len(s.tournaments))
	for _, t := range s.tournaments {
		tournaments = append(tournaments, t)
	}
	s.mu.Unlock()

	for _, t := range tournaments {
		s.tickOne(ctx, t, now)
	}
}

func (s *Service) tickOne(ctx context.Context, t *Tournament, now int64) {
	switch t.State {
	case StateRegistration:
		if now >= t.RegistrationEndUnix {
			if len(t.Participants) < t.Config.MinParticipants {
				t.State = StateCancelled
				return
			}
			t.State = StateCheckIn
			t.CheckInEndUnix = now + t.Config.CheckInWindowSeconds
		}
	case StateCheckIn:
		if now >= t.CheckInEndUnix {
			removeNoShows(t)
			if len(t.Participants) < t.Config.MinParticipants {
				t.State = StateCancelled
				return
			}
			t.State = StateBracketGeneration
		}
	case StateBracketGeneration:
		s.generateBracket(t)
		t.State = StateInProgress
		t.CurrentRound = 1
	case StateInProgress:
		s.advanceInProgress(ctx, t)
	}
}

func removeNoShows(t *Tournament) {
	for id, p := range t.Participants {
		if !p.CheckedIn {
			delete(t.Participants, id)
		}
	}
}

func (t *Tournament) participantSlice() []*Participant {
	out := make([]*Participant, 0, len(t.Participants))
	for _, p := range t.Participants {
		out = append(out, p)
	}
	return out
}

func (s *Service) generateBracket(t *Tournament) {
	participants := t.participantSlice()
	switch t.Config.Format {
	case FormatDoubleElimination:
		t.Bracket = generateDoubleElimination(participants)
	case FormatRoundRobin:
		t.Bracket = generateRoundRobin(participants)
	case FormatSwiss:
		scores := make(map[string]int, len(participants))
		t.Bracket = generateSwissRound(seedParticipants(participants), scores, map[string]bool{}, 1)
	default:
		t.Bracket = generateSingleElimination(participants)
	}
}

// advanceInProgress dispatches every Ready slot to the arena engine and
// progresses completed slots' winners forward.
func (s *Service) advanceInProgress(ctx context.Context, t *Tournament) {
	allTerminal := true
	for _, m := range t.Bracket {
		if m.State == MatchReady && m.ArenaMatchID == "" {
			matchID, err := s.arena.CreateArenaMatch(ctx, t.Config.Mode, m.P1, m.P2)
			if err != nil {
				continue
			}
			m.ArenaMatchID = matchID
			m.State = MatchInProgress
			for _, pid := range []string{m.P1, m.P2} {
				_ = notify.SendTournamentEvent(ctx, s.nk, pid, notify.TournamentEventPayload{
					TournamentID: t.ID, Event: "match_ready", Round: m.Round,
				})
			}
		}
		if m.State != MatchCompleted && m.State != MatchNoShow {
			allTerminal = false
		}
	}

	if t.Config.Format == FormatDoubleElimination {
		advanceDoubleElimination(t)
		allTerminal = t.GrandFinal != nil && t.GrandFinal.State == MatchCompleted
	} else if t.Config.Format != FormatRoundRobin && t.Config.Format != FormatSwiss {
		for _, m := range t.Bracket {
			if m.State != MatchCompleted || m.Winner == "" {
				continue
			}
			progressed := AdvanceSingleElimination(t.Bracket, m)
			for _, next := range progressed {
				next.State = MatchReady
			}
		}
	}

	if t.Config.Format == FormatSwiss && allSwissRoundComplete(t) && t.CurrentRound < swissRoundCount(len(t.Participants)) {
		scores := swissScores(t)
		played := swissPlayedPairs(t)
		next := generateSwissRound(t.participantSlice(), scores, played, t.CurrentRound+1)
		if len(next) > 0 {
			t.Bracket = append(t.Bracket, next...)
			t.CurrentRound++
			allTerminal = false
		}
	}

	if allTerminal {
		t.State = StateCompleted
		s.persistStandings(ctx, t)
	}
}

// persistStandings writes a completed tournament's final standings through
// the persistence collaborator. Best-effort: a failed write is logged and
// retried by nothing — the in-memory standings remain authoritative for
// reads until the process exits.
func (s *Service) persistStandings(ctx context.Context, t *Tournament) {
	raw, err := json.Marshal(t)
	if err != nil {
		s.logger.Error("tournament %s standings marshal failed: %v", t.ID, err)
		return
	}
	if _, err := s.nk.StorageWrite(ctx, []*runtime.StorageWrite{{
		Collection:      "tournament_standings",
		Key:             t.ID,
		Value:           string(raw),
		PermissionRead:  2,
		PermissionWrite: 0,
	}}); err != nil {
		s.logger.Error("tournament %s standings persist failed: %v", t.ID, err)
	}
}

// advanceDoubleElimination routes every freshly-completed match's loser into
// the losers-bracket FIFO exactly once (BracketMatch.LoserRouted), advances
// winners-bracket winners forward within the winners bracket, pairs off
// waiting losers-bracket contenders into new losers-bracket slots, and
// constructs the grand final once both brackets have reduced to a single
// champion, so that a loser is pushed into exactly one losers-bracket
// slot before the grand final.
func advanceDoubleElimination(t *Tournament) {
	for _, m := range t.Bracket {
		if m.Bracket == "grand_final" || m.State != MatchCompleted || m.LoserRouted {
			continue
		}
		m.LoserRouted = true
		switch m.Bracket {
		case "winners":
			AdvanceSingleElimination(t.Bracket, m)
			if m.P1 != "" && m.P2 != "" {
				loser := m.P1
				if m.Winner == m.P1 {
					loser = m.P2
				}
				t.LosersQueue = append(t.LosersQueue, loser)
			}
			if isLastWinnersRoundMatch(t.Bracket, m) {
				t.WinnersChampion = m.Winner
			}
		case "losers":
			t.LosersQueue = append(t.LosersQueue, m.Winner)
		}
	}

	pairLosersQueue(t)

	if t.WinnersChampion != "" && t.LosersChampion == "" && len(t.LosersQueue) == 1 && noPendingLosersMatch(t.Bracket) {
		t.LosersChampion = t.LosersQueue[0]
		t.LosersQueue = nil
	}

	if t.GrandFinal == nil && t.WinnersChampion != "" && t.LosersChampion != "" {
		gf := &BracketMatch{Round: -1, Position: 0, Bracket: "grand_final", P1: t.WinnersChampion, P2: t.LosersChampion, State: MatchReady}
		t.GrandFinal = gf
		t.Bracket = append(t.Bracket, gf)
	}
}

func isLastWinnersRoundMatch(matches []*BracketMatch, m *BracketMatch) bool {
	maxRound := 0
	for _, x := range matches {
		if x.Bracket == "winners" && x.Round > maxRound {
			maxRound = x.Round
		}
	}
	return m.Round == maxRound
}

func noPendingLosersMatch(matches []*BracketMatch) bool {
	for _, m := range matches {
		if m.Bracket == "losers" && m.State != MatchCompleted {
			return false
		}
	}
	return true
}

// pairLosersQueue drains Tournament.LosersQueue two at a time into new
// Ready losers-bracket match slots, appended to Bracket on demand.
func pairLosersQueue(t *Tournament) {
	for len(t.LosersQueue) >= 2 {
		p1, p2 := t.LosersQueue[0], t.LosersQueue[1]
		t.LosersQueue = t.LosersQueue[2:]
		pos := 0
		for _, m := range t.Bracket {
			if m.Bracket == "losers" {
				pos++
			}
		}
		t.Bracket = append(t.Bracket, &BracketMatch{Round: -1, Position: pos, Bracket: "losers", P1: p1, P2: p2, State: MatchReady})
	}
}

func allSwissRoundComplete(t *Tournament) bool {
	for _, m := range t.Bracket {
		if m.Round == t.CurrentRound && m.State != MatchCompleted {
			return false
		}
	}
	return true
}

func swissScores(t *Tournament) map[string]int {
	scores := make(map[string]int, len(t.Participants))
	for _, m := range t.Bracket {
		if m.State == MatchCompleted && m.Winner != "" {
			scores[m.Winner]++
		}
	}
	return scores
}

func swissPlayedPairs(t *Tournament) map[string]bool {
	played := make(map[string]bool, len(t.Bracket))
	for _, m := range t.Bracket {
		if m.P1 != "" && m.P2 != "" {
			played[PairKey(m.P1, m.P2)] = true
		}
	}
	return played
}

// ProcessArenaCompletion correlates a finished arena match back to its
// bracket slot by arena match id and records the winner, letting the next
// Tick progress the bracket past that slot. The caller (the arena match's
// own result reporter, not a tournament-scoped caller) knows only the
// arena match id, so this scans every tournament's bracket rather than
// requiring a tournament id up front. Mid-tournament abandonment (e.g. the
// arena match transitioned to Abandoned) is handled the same way: the
// caller passes the surviving side's player id as winnerPlayerID, recording
// a forfeit for the absent side.
func (s *Service) ProcessArenaCompletion(arenaMatchID, winnerPlayerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tournaments {
		for _, m := range t.Bracket {
			if m.ArenaMatchID == arenaMatchID {
				m.Winner = winnerPlayerID
				m.State = MatchCompleted
				return nil
			}
		}
	}
	return coreerrors.ErrUnknownMatch
}
