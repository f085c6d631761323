// Package ratingengine owns all per-player, per-mode rating state: ELO
// computation, tiering, decay, and season rollover. It is the leaf
// component in the dependency graph — every other component
// submits results to it and reads ratings through its interface; nothing
// reaches back into its storage.
package ratingengine

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/coreerrors"
)

const storageCollection = "pvpcore_rating"

// Record is one player's persisted rating state for a single mode, matching
// the matchmaking-view player profile fields used elsewhere.
type Record struct {
	PlayerID  string `json:"player_id"`
	Mode      string `json:"mode"`
	Current   int32  `json:"current"`
	Peak      int32  `json:"peak"`
	Deviation float64 `json:"deviation"`
	Matches   int32  `json:"matches"`
	Wins      int32  `json:"wins"`
	Losses    int32  `json:"losses"`
	Draws     int32  `json:"draws"`
	// History is a bounded ring of recent rating snapshots, used by
	// analytics.go to derive a trend line without re-reading match logs.
	History []int32 `json:"history"`
	// LastMatchUnix is the wall-clock time of this player's last ranked
	// match in this mode, used by decay.
	LastMatchUnix int64 `json:"last_match_unix"`
}

// WinRate returns the player's win rate in [0,1], or 0 with no matches played.
func (r Record) WinRate() float64 {
	if r.Matches == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Matches)
}

const historyCap = 20

func (r *Record) pushHistory(rating int32) {
	r.History = append(r.History, rating)
	if len(r.History) > historyCap {
		r.History = r.History[len(r.History)-historyCap:]
	}
}

// Outcome identifies how a single player fared in a submitted result.
type Outcome int

const (
	OutcomeWin Outcome = iota
	OutcomeLoss
	OutcomeDraw
)

// ParticipantResult is one player's half of a submit_result call.
type ParticipantResult struct {
	PlayerID         string
	Outcome          Outcome
	OpponentAvgRating int32 // average rating of the opposing team
}

// Delta is the rating change assigned to a participant, returned from
// SubmitResult so callers (the arena match, the tournament engine) can
// surface it to players without a second read.
type Delta struct {
	PlayerID  string
	Before    int32
	After     int32
	Change    int32
}

// Engine is the rating engine. It is stateless except for the Nakama storage
// engine it reads/writes through, modeled as an explicitly-owned service
// rather than a process global.
type Engine struct {
	nk     runtime.NakamaModule
	logger runtime.Logger
}

// New constructs a rating engine bound to a Nakama module instance.
func New(nk runtime.NakamaModule, logger runtime.Logger) *Engine {
	return &Engine{nk: nk, logger: logger}
}

func defaultRecord(playerID, mode string) Record {
	return Record{PlayerID: playerID, Mode: mode, Current: int32(config.Get().SeasonBaselineRating), Peak: int32(config.Get().SeasonBaselineRating), Deviation: 350}
}

// Get reads a player's rating record for a mode, creating a baseline record
// on first read (an unranked player has no rating history yet).
func (e *Engine) Get(ctx context.Context, playerID, mode string) (Record, error) {
	objs, err := e.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: storageCollection, Key: mode, UserID: playerID},
	})
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", coreerrors.ErrCouldNotReadStorage, err)
	}
	if len(objs) == 0 {
		return defaultRecord(playerID, mode), nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(objs[0].Value), &rec); err != nil {
		return Record{}, fmt.Errorf("%w: %v", coreerrors.ErrCouldNotReadStorage, err)
	}
	return rec, nil
}

func (e *Engine) put(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrMarshal, err)
	}
	_, err = e.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      storageCollection,
			Key:             rec.Mode,
			UserID:          rec.PlayerID,
			Value:           string(raw),
			PermissionRead:  2,
			PermissionWrite: 0,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrCouldNotWriteStorage, err)
	}
	return nil
}

// expectedScore is the standard ELO expectation at a 400-point scale.
func expectedScore(self, opponent int32) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponent-self)/400.0))
}

// SubmitResult applies ELO updates to every participant and persists the
// resulting records. Rating deltas are assigned atomically in this single
// call, assigned exactly once — callers must only call this once per
// finished match.
func (e *Engine) SubmitResult(ctx context.Context, mode string, kFactor int32, participants []ParticipantResult) ([]Delta, error) {
	deltas := make([]Delta, 0, len(participants))
	for _, p := range participants {
		rec, err := e.Get(ctx, p.PlayerID, mode)
		if err != nil {
			return nil, err
		}

		var actual float64
		switch p.Outcome {
		case OutcomeWin:
			actual = 1
		case OutcomeLoss:
			actual = 0
		case OutcomeDraw:
			actual = 0.5
		}

		before := rec.Current
		change := int32(0)
		if p.Outcome != OutcomeDraw {
			expected := expectedScore(before, p.OpponentAvgRating)
			raw := float64(kFactor) * (actual - expected)
			change = int32(math.Round(raw))
			if p.Outcome == OutcomeWin && change < 1 {
				change = 1
			}
			if p.Outcome == OutcomeLoss && change > -1 {
				change = -1
			}
		}

		after := before + change
		rec.Current = after
		if after > rec.Peak {
			rec.Peak = after
		}
		rec.Matches++
		switch p.Outcome {
		case OutcomeWin:
			rec.Wins++
		case OutcomeLoss:
			rec.Losses++
		case OutcomeDraw:
			rec.Draws++
		}
		rec.LastMatchUnix = time.Now().Unix()
		rec.pushHistory(after)

		if err := e.put(ctx, rec); err != nil {
			return nil, err
		}
		deltas = append(deltas, Delta{PlayerID: p.PlayerID, Before: before, After: after, Change: change})
	}
	return deltas, nil
}

// Rating returns just the current rating for a player/mode pair.
func (e *Engine) Rating(ctx context.Context, playerID, mode string) (int32, error) {
	rec, err := e.Get(ctx, playerID, mode)
	if err != nil {
		return 0, err
	}
	return rec.Current, nil
}
