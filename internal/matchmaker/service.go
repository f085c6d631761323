package matchmaker

import (
	"context"
	"sync"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/coreerrors"
)

// FormedMatch is the payload of a MatchFound event: one candidate group
// split into rating-balanced teams, ready for the Arena Runtime to build a
// match from.
type FormedMatch struct {
	Mode    string
	Teams   [][]Entry
	Quality float64
}

// Event is one matchmaking lifecycle notification the tick driver fans out
// to Arena/Tournament/notify.
type Event struct {
	Kind    string // "match_found", "queue_timeout"
	PlayerIDs []string
	Match   *FormedMatch
}

// InMatchChecker reports whether a player is currently inside a live arena
// match, so Enqueue can refuse a second queue join while one is in
// progress. Implemented by the shared in-match tracker InitModule hands to
// both this service and the arena match factory, keeping this package free
// of a direct arena import.
type InMatchChecker interface {
	InMatch(playerID string) bool
}

// Service is the matchmaker. It owns one FIFO queue per mode exclusively.
// Enqueue and Leave are called from RPC handlers and Tick from the
// coordinator match; mu serializes every access to the queues.
type Service struct {
	mu      sync.Mutex
	queues  map[string][]Entry
	inMatch InMatchChecker
	// recent is the per-player bounded ring of last opponents, recorded as
	// matches form and folded back into each new Entry to damp repeat
	// matchups.
	recent map[string][]string
}

// recentOpponentCap bounds the anti-repeat ring per player.
const recentOpponentCap = 5

// New constructs an empty matchmaker service. inMatch may be nil, in which
// case the in-match check is skipped (used by tests exercising the queue in
// isolation).
func New(inMatch InMatchChecker) *Service {
	return &Service{queues: make(map[string][]Entry), inMatch: inMatch, recent: make(map[string][]string)}
}

// Enqueue adds a player to their mode's queue, rejecting anyone already
// queued or already inside a live arena match so in_queue + in_match stays
// at most 1 for every player.
func (s *Service) Enqueue(mode string, e Entry, now int64) error {
	modeCfg, ok := config.Mode(mode)
	if !ok {
		return coreerrors.ErrUnknownMode
	}
	if s.inMatch != nil && s.inMatch.InMatch(e.PlayerID) {
		return coreerrors.ErrAlreadyInMatch
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	groupSize := 0
	for _, q := range s.queues {
		for _, existing := range q {
			if existing.PlayerID == e.PlayerID {
				return coreerrors.ErrAlreadyQueued
			}
			if e.PremadeGroup != "" && existing.PremadeGroup == e.PremadeGroup {
				groupSize++
			}
		}
	}
	if e.PremadeGroup != "" {
		if !modeCfg.AllowPremade {
			return coreerrors.ErrIneligible
		}
		if groupSize+1 > modeCfg.MaxPremadeSize {
			return coreerrors.ErrIneligible
		}
	}
	e.Mode = mode
	e.EnqueuedAtUnix = now
	e.RecentOpponents = append(e.RecentOpponents, s.recent[e.PlayerID]...)
	s.queues[mode] = append(s.queues[mode], e)
	return nil
}

// recordOpponentsLocked pushes every cross-team pairing of a formed match
// into both players' recent-opponent rings.
func (s *Service) recordOpponentsLocked(teams [][]Entry) {
	push := func(playerID, opponentID string) {
		ring := append(s.recent[playerID], opponentID)
		if len(ring) > recentOpponentCap {
			ring = ring[len(ring)-recentOpponentCap:]
		}
		s.recent[playerID] = ring
	}
	for i, team := range teams {
		for j, other := range teams {
			if i == j {
				continue
			}
			for _, a := range team {
				for _, b := range other {
					push(a.PlayerID, b.PlayerID)
				}
			}
		}
	}
}

// Leave removes a player from whatever queue they are in. Idempotent:
// calling Leave twice in a row returns ErrNotQueued the second time and has
// no side effect.
func (s *Service) Leave(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for mode, q := range s.queues {
		for i, e := range q {
			if e.PlayerID == playerID {
				s.queues[mode] = append(q[:i], q[i+1:]...)
				return nil
			}
		}
	}
	return coreerrors.ErrNotQueued
}

// Status reports {waiting, avg_wait, est_wait} for a mode.
type Status struct {
	Waiting        int
	AvgWaitSeconds float64
	EstWaitSeconds float64
}

func (s *Service) Status(mode string, now int64) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[mode]
	if len(q) == 0 {
		return Status{}
	}
	var total int64
	for _, e := range q {
		total += now - e.EnqueuedAtUnix
	}
	avg := float64(total) / float64(len(q))
	// Rough estimate for a new joiner: current average wait, capped at the
	// mode's eviction deadline past which no one waits anyway.
	est := avg
	if cfg, ok := config.Mode(mode); ok && est > float64(cfg.MaxQueueTimeSeconds) {
		est = float64(cfg.MaxQueueTimeSeconds)
	}
	return Status{Waiting: len(q), AvgWaitSeconds: avg, EstWaitSeconds: est}
}

// Tick advances matching for every mode,
// and returns the events the tick driver should fan out.
func (s *Service) Tick(ctx context.Context, now int64) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []Event
	for mode, q := range s.queues {
		modeCfg, ok := config.Mode(mode)
		if !ok {
			continue
		}

		// Evict timed-out entries first; their head-of-queue presence
		// should never block matching.
		var survivors []Entry
		for _, e := range q {
			if now-e.EnqueuedAtUnix >= modeCfg.MaxQueueTimeSeconds {
				events = append(events, Event{Kind: "queue_timeout", PlayerIDs: []string{e.PlayerID}})
				continue
			}
			survivors = append(survivors, e)
		}
		q = survivors

		// FIFO anchor scan: try each entry as a group anchor once, oldest
		// first; a failed or rejected anchor is not retried this tick.
		anchor := 0
		for anchor < len(q) {
			candidates, ok := collectCandidates(modeCfg, q, anchor, now)
			if !ok {
				anchor++
				continue
			}

			teams := snakeSeed(candidates, modeCfg.TeamSize, modeCfg.TeamCount)
			averages := make([]float64, len(teams))
			var totalWait, totalPing float64
			for i, t := range teams {
				averages[i] = teamAverage(t)
			}
			oldestEnqueued := candidates[0].EnqueuedAtUnix
			for _, e := range candidates {
				totalWait += float64(now - e.EnqueuedAtUnix)
				totalPing += float64(e.PingMs)
				if e.EnqueuedAtUnix < oldestEnqueued {
					oldestEnqueued = e.EnqueuedAtUnix
				}
			}
			avgWait := totalWait / float64(len(candidates))
			avgPing := totalPing / float64(len(candidates))
			quality := Quality(averages, avgWait, avgPing)

			oldestWait := now - oldestEnqueued
			if quality < qualityThreshold && oldestWait < RelaxationThreshold(modeCfg) {
				anchor++
				continue
			}

			ids := make([]string, len(candidates))
			matched := make(map[string]bool, len(candidates))
			for i, c := range candidates {
				ids[i] = c.PlayerID
				matched[c.PlayerID] = true
			}
			// Compact the queue; the anchor slides back past any matched
			// entries that sat before it so the next unseen entry is tried.
			remaining := make([]Entry, 0, len(q))
			nextAnchor := 0
			for i, e := range q {
				if matched[e.PlayerID] {
					continue
				}
				if i < anchor {
					nextAnchor++
				}
				remaining = append(remaining, e)
			}
			q = remaining
			anchor = nextAnchor

			s.recordOpponentsLocked(teams)
			fm := FormedMatch{Mode: mode, Teams: teams, Quality: quality}
			events = append(events, Event{Kind: "match_found", PlayerIDs: ids, Match: &fm})
		}

		s.queues[mode] = q
	}
	return events
}
