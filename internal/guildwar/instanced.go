package guildwar

import (
	"context"
	"math"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/coreerrors"
)

// WorldCollaborator is the minimal world interface the guild war engine
// consumes: teleport and position. The core depends only on this shape,
// never on
// the collaborator's internal representation.
type WorldCollaborator interface {
	Teleport(ctx context.Context, playerID string, pos config.Vec3) error
	Position(ctx context.Context, playerID string) (config.Vec3, error)
}

// EnterInstance teleports a participant into the instanced war arena,
// recording their original position for restoration on exit.
func EnterInstance(ctx context.Context, world WorldCollaborator, w *War, p *Participant, instanceEntry config.Vec3) error {
	pos, err := world.Position(ctx, p.PlayerID)
	if err != nil {
		return coreerrors.ErrCollaboratorCall
	}
	if err := world.Teleport(ctx, p.PlayerID, instanceEntry); err != nil {
		return coreerrors.ErrCollaboratorCall
	}
	p.OriginalPos = pos
	p.InInstance = true
	return nil
}

// ExitInstance restores a participant to their pre-war position. Safe to
// call more than once; a participant not currently in the instance is a
// no-op.
func ExitInstance(ctx context.Context, world WorldCollaborator, p *Participant) error {
	if !p.InInstance {
		return nil
	}
	if err := world.Teleport(ctx, p.PlayerID, p.OriginalPos); err != nil {
		return coreerrors.ErrCollaboratorCall
	}
	p.InInstance = false
	return nil
}

func distance(a, b config.Vec3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// AdvanceObjectiveCapture implements the instanced-war half of guild war
// scoring: objectives are fixed nodes with point values, and capture
// requires proximity over time. For each objective, the sole guild with a player
// within CaptureRadius accrues ProximityProgress; presence by the
// opposing guild (or both) resets progress. Crossing CaptureSeconds flips
// ControllingGuild and awards its point value.
func AdvanceObjectiveCapture(w *War, positions map[string]config.Vec3, dt float64) {
	for _, obj := range w.Objectives {
		guildsPresent := map[string]bool{}
		for playerID, pos := range positions {
			p, ok := w.Participants[playerID]
			if !ok || !p.InInstance {
				continue
			}
			if distance(pos, obj.Position) <= obj.CaptureRadius {
				guildsPresent[p.GuildID] = true
			}
		}

		var sole string
		switch len(guildsPresent) {
		case 0:
			obj.ProximityProgress = 0
			continue
		case 1:
			for g := range guildsPresent {
				sole = g
			}
		default:
			obj.ProximityProgress = 0
			continue
		}

		if sole == obj.ControllingGuild {
			obj.ProximityProgress = 0
			continue
		}
		if sole != obj.ContestingGuild {
			obj.ContestingGuild = sole
			obj.ProximityProgress = 0
		}
		obj.ProximityProgress += dt
		if obj.ProximityProgress >= obj.CaptureSeconds {
			obj.ControllingGuild = sole
			obj.ContestingGuild = ""
			obj.ProximityProgress = 0
			AddObjectiveCapturePoints(w, sole, obj.PointValue)
		}
	}
}
