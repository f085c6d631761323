// Package notify provides unified notification types and helpers for
// server-to-client communication from the PvP coordination core.
package notify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/heroiclabs/nakama-common/runtime"
)

// Notification codes. Keep in sync with the client's ServerNotifyCode enum.
const (
	CodeSystem        = 0 // System messages / fallback toast
	CodeToast         = 1 // Simple toast notifications
	CodeCenterMessage = 3 // Center flyout message
	CodeSocial        = 5 // Friend activity
	CodeMatchmaking   = 6 // Queue accept/reject, match found, timeout
	CodeAnnouncement  = 8 // Maintenance / server announcements

	CodeMatchResult    = 10 // Win/loss with rating delta
	CodeTournamentFlow = 11 // Registration, check-in, bracket progress
	CodeWarDeclared    = 12 // Guild war declaration / acceptance / result
	CodeZoneFlagged    = 13 // Open-world PvP flag state change
	CodeHonorGain      = 14 // Honor awarded for a sanctioned kill
)

// MatchResultPayload reports a terminal arena match outcome to one participant.
type MatchResultPayload struct {
	MatchID      string `json:"match_id"`
	Won          bool   `json:"won"`
	Draw         bool   `json:"draw"`
	RatingDelta  int32  `json:"rating_delta"`
	NewRating    int32  `json:"new_rating"`
	WasMVP       bool   `json:"was_mvp,omitempty"`
	CreatedAtUTC int64  `json:"created_at"`
}

// QueueEventPayload reports matchmaking lifecycle events.
type QueueEventPayload struct {
	Mode         string `json:"mode"`
	Event        string `json:"event"` // accepted, rejected, match_found, timeout
	Reason       string `json:"reason,omitempty"`
	MatchID      string `json:"match_id,omitempty"`
	CreatedAtUTC int64  `json:"created_at"`
}

// TournamentEventPayload reports tournament registration/check-in/bracket events.
type TournamentEventPayload struct {
	TournamentID string `json:"tournament_id"`
	Event        string `json:"event"`
	Round        int    `json:"round,omitempty"`
	CreatedAtUTC int64  `json:"created_at"`
}

// WarEventPayload reports guild war declaration and outcome events.
type WarEventPayload struct {
	WarID        string `json:"war_id"`
	Event        string `json:"event"` // declared, accepted, started, finished
	Outcome      string `json:"outcome,omitempty"`
	CreatedAtUTC int64  `json:"created_at"`
}

// ZoneFlagPayload reports open-world PvP flag state transitions.
type ZoneFlagPayload struct {
	ZoneID       string `json:"zone_id"`
	Flagged      bool   `json:"flagged"`
	CreatedAtUTC int64  `json:"created_at"`
}

// HonorGainPayload reports honor awarded for a sanctioned kill.
type HonorGainPayload struct {
	VictimID     string `json:"victim_id"`
	Honor        int32  `json:"honor"`
	CreatedAtUTC int64  `json:"created_at"`
}

func generateID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func send(ctx context.Context, nk runtime.NakamaModule, userID, subject string, payload interface{}, code int, persistent bool) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify marshal: %w", err)
	}
	var content map[string]interface{}
	if err := json.Unmarshal(raw, &content); err != nil {
		return fmt.Errorf("notify unmarshal: %w", err)
	}
	return nk.NotificationSend(ctx, userID, subject, content, code, "", persistent)
}

// SendMatchResult notifies a player of their terminal match outcome.
func SendMatchResult(ctx context.Context, nk runtime.NakamaModule, userID string, p MatchResultPayload) error {
	p.CreatedAtUTC = time.Now().UnixMilli()
	subject := "Defeat"
	if p.Draw {
		subject = "Draw"
	} else if p.Won {
		subject = "Victory"
	}
	return send(ctx, nk, userID, subject, p, CodeMatchResult, true)
}

// SendQueueEvent notifies a player of a matchmaking lifecycle transition.
func SendQueueEvent(ctx context.Context, nk runtime.NakamaModule, userID string, p QueueEventPayload) error {
	p.CreatedAtUTC = time.Now().UnixMilli()
	return send(ctx, nk, userID, "Matchmaking", p, CodeMatchmaking, false)
}

// SendTournamentEvent notifies a player of a tournament lifecycle transition.
func SendTournamentEvent(ctx context.Context, nk runtime.NakamaModule, userID string, p TournamentEventPayload) error {
	p.CreatedAtUTC = time.Now().UnixMilli()
	return send(ctx, nk, userID, "Tournament", p, CodeTournamentFlow, true)
}

// SendWarEvent notifies a player of a guild war lifecycle transition.
func SendWarEvent(ctx context.Context, nk runtime.NakamaModule, userID string, p WarEventPayload) error {
	p.CreatedAtUTC = time.Now().UnixMilli()
	return send(ctx, nk, userID, "Guild War", p, CodeWarDeclared, true)
}

// SendZoneFlag notifies a player their PvP flag state changed.
func SendZoneFlag(ctx context.Context, nk runtime.NakamaModule, userID string, p ZoneFlagPayload) error {
	p.CreatedAtUTC = time.Now().UnixMilli()
	return send(ctx, nk, userID, "PvP Flag", p, CodeZoneFlagged, false)
}

// SendHonorGain notifies a player of honor earned from a kill.
func SendHonorGain(ctx context.Context, nk runtime.NakamaModule, userID string, p HonorGainPayload) error {
	p.CreatedAtUTC = time.Now().UnixMilli()
	return send(ctx, nk, userID, "Honor", p, CodeHonorGain, false)
}

// SendToast sends a simple toast notification.
func SendToast(ctx context.Context, nk runtime.NakamaModule, userID, message string) error {
	content := map[string]interface{}{"message": message}
	return nk.NotificationSend(ctx, userID, message, content, CodeToast, "", false)
}

// SendAnnouncement sends a persistent server announcement.
func SendAnnouncement(ctx context.Context, nk runtime.NakamaModule, userID, title, body string) error {
	content := map[string]interface{}{"title": title, "body": body}
	return nk.NotificationSend(ctx, userID, title, content, CodeAnnouncement, "", true)
}

// NewCorrelationID returns a short random identifier suitable for correlating
// a client-visible notification with a server-side log line.
func NewCorrelationID() string {
	return generateID()
}
