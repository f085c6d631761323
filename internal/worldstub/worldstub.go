// Package worldstub is a best-effort stand-in for the external world
// collaborator ("teleport(player, location)", "position(player) -> vec3")
// that explicitly leaves actual map geometry and pathfinding out of scope.
// The coordination core
// depends only on guildwar.WorldCollaborator's two methods; this adapter
// persists the last known position through Nakama storage exactly the way
// items/player_inventory.go persists other per-player state, so instanced
// guild wars have somewhere real to read/write without inventing a
// simulation this core does not own.
package worldstub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/heroiclabs/nakama-common/runtime"

	"github.com/ironspire/pvpcore/internal/config"
	"github.com/ironspire/pvpcore/internal/coreerrors"
)

const storageCollection = "pvpcore_world_position"
const storageKey = "position"

// Adapter implements guildwar.WorldCollaborator against Nakama storage.
type Adapter struct {
	nk runtime.NakamaModule
}

// New constructs a storage-backed world adapter.
func New(nk runtime.NakamaModule) *Adapter {
	return &Adapter{nk: nk}
}

// Position returns a player's last recorded position, or the origin if none
// has ever been recorded.
func (a *Adapter) Position(ctx context.Context, playerID string) (config.Vec3, error) {
	objs, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: storageCollection, Key: storageKey, UserID: playerID},
	})
	if err != nil {
		return config.Vec3{}, fmt.Errorf("%w: %v", coreerrors.ErrCollaboratorCall, err)
	}
	if len(objs) == 0 {
		return config.Vec3{}, nil
	}
	var pos config.Vec3
	if err := json.Unmarshal([]byte(objs[0].Value), &pos); err != nil {
		return config.Vec3{}, fmt.Errorf("%w: %v", coreerrors.ErrCollaboratorCall, err)
	}
	return pos, nil
}

// Teleport records a player's new position. The real game server's session
// layer is responsible for actually relocating the connected client; this
// core only needs a durable record of where a participant belongs so
// instanced guild wars can restore it on exit.
func (a *Adapter) Teleport(ctx context.Context, playerID string, pos config.Vec3) error {
	raw, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrMarshal, err)
	}
	_, err = a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      storageCollection,
			Key:             storageKey,
			UserID:          playerID,
			Value:           string(raw),
			PermissionRead:  2,
			PermissionWrite: 0,
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrCollaboratorCall, err)
	}
	return nil
}
