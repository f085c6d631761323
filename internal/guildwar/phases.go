package guildwar

import "github.com/ironspire/pvpcore/internal/config"

// advancePhase drives one war's state machine forward by one tick,
// following the Declaration -> Preparation -> Active -> Resolution ->
// Cleanup sequence. Returns true if the war entered Cleanup
// this call (the caller should then run cleanup side effects once).
func advancePhase(w *War, now int64, wc config.WarConfig) bool {
	switch w.Phase {
	case PhaseDeclaration:
		if !w.Accepted {
			if now >= declarationDeadline(w, wc) {
				w.Phase = PhaseCleanup
				return true
			}
			return false
		}
		w.Phase = PhasePreparation
		w.PreparationEndUnix = now + wc.PreparationWindowSeconds
	case PhasePreparation:
		if now >= w.PreparationEndUnix {
			w.Phase = PhaseActive
			w.ActiveEndUnix = now + wc.ActiveDurationSeconds
		}
	case PhaseActive:
		if checkVictory(w, now, wc) {
			w.Phase = PhaseResolution
			w.ResolutionEndUnix = now + wc.ResolutionWindowSeconds
		}
	case PhaseResolution:
		if now >= w.ResolutionEndUnix {
			w.Phase = PhaseCleanup
			return true
		}
	}
	return false
}
