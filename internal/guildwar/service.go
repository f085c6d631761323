package guildwar

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/coreerrors"
	"github.com/ironspire/pvpcore/notify"
)

// Service owns every declared war. A War's state is mutated exclusively
// through this type; external systems hold only a War's ID.
//
// Open question: the original system leaves undefined what happens when
// a player is registered in two overlapping wars simultaneously. This
// implementation enforces the requirement directly: a player participates
// in at most one war at a time, from Join until that war's cleanup (or the
// player's Leave), whatever its phase; Join returns ErrAlreadyInWar
// otherwise.
type Service struct {
	nk     runtime.NakamaModule
	world  WorldCollaborator
	logger runtime.Logger

	mu            sync.Mutex
	wars          map[string]*War
	activeByGuild map[string]map[string]bool // guildID -> set of non-terminal warIDs
	playerToWar   map[string]string          // playerID -> warID, for the at-most-one-war invariant
	territories   map[string]*Territory
	lastTickUnix  int64
}

// New constructs a guild war service, seeding the territory registry from
// the embedded configuration.
func New(nk runtime.NakamaModule, world WorldCollaborator, logger runtime.Logger) *Service {
	s := &Service{
		nk:            nk,
		world:         world,
		logger:        logger,
		wars:          make(map[string]*War),
		activeByGuild: make(map[string]map[string]bool),
		playerToWar:   make(map[string]string),
		territories:   make(map[string]*Territory),
	}
	if c := config.Get(); c != nil {
		for _, tc := range c.Territories {
			s.territories[tc.ID] = newTerritoryFromConfig(tc)
		}
	}
	return s
}

// Declare starts a new war in the Declaration phase.
func (s *Service) Declare(cfg Config, now int64) (*War, error) {
	wc := config.Get().War
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.activeByGuild[cfg.GuildA]) >= wc.MaxConcurrentWars || len(s.activeByGuild[cfg.GuildB]) >= wc.MaxConcurrentWars {
		return nil, coreerrors.ErrTooManyWars
	}
	for _, tid := range cfg.TerritoryIDs {
		if _, ok := s.territories[tid]; !ok {
			return nil, coreerrors.ErrInvalidInput
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrInternal, err)
	}
	w := newWar(id.String(), cfg, now, wc)
	s.wars[w.ID] = w
	s.reserveSlot(cfg.GuildA, w.ID)
	s.reserveSlot(cfg.GuildB, w.ID)
	return w, nil
}

func (s *Service) reserveSlot(guild, warID string) {
	set, ok := s.activeByGuild[guild]
	if !ok {
		set = make(map[string]bool)
		s.activeByGuild[guild] = set
	}
	set[warID] = true
}

func (s *Service) releaseSlot(guild, warID string) {
	if set, ok := s.activeByGuild[guild]; ok {
		delete(set, warID)
	}
}

// Accept records the declared-against guild's acceptance. A war not
// accepted within the declaration window expires on the next Tick.
func (s *Service) Accept(warID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wars[warID]
	if !ok {
		return coreerrors.ErrUnknownWar
	}
	if w.Phase != PhaseDeclaration {
		return coreerrors.ErrWrongPhase
	}
	w.Accepted = true
	return nil
}

// Join registers a guild member as a war participant. Joining an instanced
// war past Declaration teleports the player into the instance, recording
// their original position for restoration on exit; seamless wars only
// record membership — presence in contested territory is observed each
// tick from world positions.
func (s *Service) Join(ctx context.Context, warID, playerID, guildID string) error {
	s.mu.Lock()
	w, ok := s.wars[warID]
	if !ok {
		s.mu.Unlock()
		return coreerrors.ErrUnknownWar
	}
	if guildID != w.GuildA && guildID != w.GuildB {
		s.mu.Unlock()
		return coreerrors.ErrInvalidInput
	}
	if existing, inWar := s.playerToWar[playerID]; inWar && existing != warID {
		s.mu.Unlock()
		return coreerrors.ErrAlreadyInWar
	}
	if _, exists := w.Participants[playerID]; exists {
		s.mu.Unlock()
		return nil
	}
	p := &Participant{PlayerID: playerID, GuildID: guildID}
	w.Participants[playerID] = p
	s.playerToWar[playerID] = warID
	needsEntry := w.Flavor == FlavorInstanced && (w.Phase == PhasePreparation || w.Phase == PhaseActive)
	s.mu.Unlock()

	if needsEntry && s.world != nil {
		if err := EnterInstance(ctx, s.world, w, p, config.Get().War.InstanceEntry); err != nil {
			return err
		}
	}
	return nil
}

// Leave removes a participant, restoring an instanced-war participant to
// their pre-war position. Idempotent: leaving twice is a no-op.
func (s *Service) Leave(ctx context.Context, warID, playerID string) error {
	s.mu.Lock()
	w, ok := s.wars[warID]
	if !ok {
		s.mu.Unlock()
		return coreerrors.ErrUnknownWar
	}
	p := w.Participants[playerID]
	delete(w.Participants, playerID)
	if s.playerToWar[playerID] == warID {
		delete(s.playerToWar, playerID)
	}
	s.mu.Unlock()

	if p != nil && p.InInstance && s.world != nil {
		return ExitInstance(ctx, s.world, p)
	}
	return nil
}

// OnKill credits the killer's guild with kill points.
func (s *Service) OnKill(warID, killerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wars[warID]
	if !ok {
		return coreerrors.ErrUnknownWar
	}
	p, ok := w.Participants[killerID]
	if !ok {
		return coreerrors.ErrUnknownPlayer
	}
	AddKillPoints(w, p.GuildID, config.Get().War)
	return nil
}

// Tick advances every non-terminal war's phase, integrates objective and
// territory scoring for active wars, accrues territory resource yields, and
// runs cleanup for wars that reach it this call.
func (s *Service) Tick(ctx context.Context, now int64) {
	wc := config.Get().War
	s.mu.Lock()
	dt := float64(0)
	if s.lastTickUnix != 0 && now > s.lastTickUnix {
		dt = float64(now - s.lastTickUnix)
	}
	s.lastTickUnix = now
	wars := make([]*War, 0, len(s.wars))
	for _, w := range s.wars {
		if !w.Phase.Terminal() {
			wars = append(wars, w)
		}
	}
	for _, t := range s.territories {
		t.accrueYield(now)
	}
	s.mu.Unlock()

	for _, w := range wars {
		if w.Phase == PhaseActive && dt > 0 {
			s.integrateScoring(ctx, w, dt, wc)
		}

		s.mu.Lock()
		priorPhase := w.Phase
		enteredCleanup := advancePhase(w, now, wc)
		var toEnter []*Participant
		if priorPhase == PhaseDeclaration && w.Phase == PhasePreparation {
			switch w.Flavor {
			case FlavorSeamless:
				s.claimTerritoriesLocked(w)
			case FlavorInstanced:
				for _, p := range w.Participants {
					if !p.InInstance {
						toEnter = append(toEnter, p)
					}
				}
			}
		}
		if priorPhase == PhaseActive && w.Phase == PhaseResolution && w.Flavor == FlavorSeamless && w.Winner != "" {
			s.transferTerritoriesLocked(w)
		}
		s.mu.Unlock()

		if s.world != nil {
			for _, p := range toEnter {
				if err := EnterInstance(ctx, s.world, w, p, wc.InstanceEntry); err != nil {
					s.logger.Warn("war %s: instance entry failed for %s: %v", w.ID, p.PlayerID, err)
				}
			}
		}

		if priorPhase == PhaseActive && w.Phase == PhaseResolution {
			s.announceOutcome(ctx, w)
		}
		if enteredCleanup {
			s.cleanup(ctx, w)
		}
	}
}

// integrateScoring runs one tick's worth of the flavor-specific scoring
// half: objective proximity capture for instanced wars, contested-territory
// headcount control for seamless wars. Participant positions come from the
// world collaborator; a participant whose position cannot be read simply
// contributes nothing this tick.
func (s *Service) integrateScoring(ctx context.Context, w *War, dt float64, wc config.WarConfig) {
	if s.world == nil {
		return
	}
	s.mu.Lock()
	participants := make([]*Participant, 0, len(w.Participants))
	for _, p := range w.Participants {
		participants = append(participants, p)
	}
	claimed := make([]*Territory, 0, len(w.TerritoryIDs))
	for _, tid := range w.TerritoryIDs {
		if t, ok := s.territories[tid]; ok {
			claimed = append(claimed, t)
		}
	}
	s.mu.Unlock()

	positions := make(map[string]config.Vec3, len(participants))
	for _, p := range participants {
		pos, err := s.world.Position(ctx, p.PlayerID)
		if err != nil {
			continue
		}
		positions[p.PlayerID] = pos
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch w.Flavor {
	case FlavorInstanced:
		AdvanceObjectiveCapture(w, positions, dt)
	case FlavorSeamless:
		var present []string
		for _, p := range participants {
			pos, ok := positions[p.PlayerID]
			if !ok {
				continue
			}
			for _, t := range claimed {
				if t.containsPos(pos) {
					present = append(present, p.GuildID)
					break
				}
			}
		}
		IntegrateTerritoryControl(w, present, dt, wc)
	}
}

func (s *Service) claimTerritoriesLocked(w *War) {
	for _, tid := range w.TerritoryIDs {
		if t, ok := s.territories[tid]; ok {
			t.claims[w.ID] = true
		}
	}
}

// transferTerritoriesLocked hands a decided seamless war's contested
// territories to the winning guild.
func (s *Service) transferTerritoriesLocked(w *War) {
	for _, tid := range w.TerritoryIDs {
		if t, ok := s.territories[tid]; ok {
			t.Owner = w.Winner
		}
	}
}

// Territories returns a snapshot of the territory registry for status
// reads: id, owner, contested flag, and banked resources.
type TerritoryView struct {
	ID               string
	Name             string
	Owner            string
	Contested        bool
	AccruedResources int64
}

func (s *Service) Territories() []TerritoryView {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TerritoryView, 0, len(s.territories))
	for _, t := range s.territories {
		out = append(out, TerritoryView{
			ID:               t.ID,
			Name:             t.Name,
			Owner:            t.Owner,
			Contested:        t.Contested(),
			AccruedResources: t.AccruedResources,
		})
	}
	return out
}

func (s *Service) announceOutcome(ctx context.Context, w *War) {
	outcome := w.Winner
	if w.Draw {
		outcome = "draw"
	}
	for playerID := range w.Participants {
		_ = notify.SendWarEvent(ctx, s.nk, playerID, notify.WarEventPayload{
			WarID:   w.ID,
			Event:   "finished",
			Outcome: outcome,
		})
	}
}

// cleanup restores positions, clears participant flags, removes territory
// claims, and releases the slot from each guild's active-wars set.
func (s *Service) cleanup(ctx context.Context, w *War) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.Flavor == FlavorInstanced && s.world != nil {
		for _, p := range w.Participants {
			_ = ExitInstance(ctx, s.world, p)
		}
	}
	for k := range w.Participants {
		delete(s.playerToWar, k)
	}
	w.Participants = make(map[string]*Participant)
	for _, obj := range w.Objectives {
		obj.ContestingGuild = ""
		obj.ProximityProgress = 0
	}
	w.territoryAccrualSeconds = make(map[string]float64)
	for _, tid := range w.TerritoryIDs {
		if t, ok := s.territories[tid]; ok {
			delete(t.claims, w.ID)
		}
	}

	s.releaseSlot(w.GuildA, w.ID)
	s.releaseSlot(w.GuildB, w.ID)
}

// War returns the live war by ID, for status queries.
func (s *Service) War(warID string) (*War, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wars[warID]
	if !ok {
		return nil, coreerrors.ErrUnknownWar
	}
	return w, nil
}
