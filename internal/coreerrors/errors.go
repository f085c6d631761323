// Package coreerrors defines sentinel errors for all RPCs, RPCs-turned-match-signals,
// and match handlers in the coordination core. Return these unwrapped — wrapping
// changes the gRPC code on the wire.
package coreerrors

import "github.com/heroiclabs/nakama-common/runtime"

// gRPC status codes used across the core. Named after their error kinds
// rather than left as bare numbers.
const (
	CodeValidation         = 3  // codes.InvalidArgument
	CodeStateConflict      = 9  // codes.FailedPrecondition
	CodeTimeout            = 4  // codes.DeadlineExceeded
	CodeResourceExhaustion = 8  // codes.ResourceExhausted
	CodeExternalFailure    = 14 // codes.Unavailable
	CodeInternal           = 13 // codes.Internal
)

var (
	// Validation (code 3): unknown entity, out-of-range value, duplicate registration.
	ErrUnknownPlayer     = runtime.NewError("unknown player", CodeValidation)
	ErrUnknownMode       = runtime.NewError("unknown matchmaking mode", CodeValidation)
	ErrUnknownMatch      = runtime.NewError("unknown match", CodeValidation)
	ErrUnknownTournament = runtime.NewError("unknown tournament", CodeValidation)
	ErrUnknownZone       = runtime.NewError("unknown zone", CodeValidation)
	ErrUnknownWar        = runtime.NewError("unknown war", CodeValidation)
	ErrInvalidInput      = runtime.NewError("invalid request", CodeValidation)
	ErrUnmarshal         = runtime.NewError("cannot unmarshal payload", CodeValidation)
	ErrIneligible        = runtime.NewError("player is not eligible", CodeValidation)
	ErrDuplicateEntity   = runtime.NewError("entity already registered", CodeValidation)

	// StateConflict (code 9): operation not permitted in the entity's current state.
	ErrAlreadyQueued     = runtime.NewError("player already queued", CodeStateConflict)
	ErrAlreadyInMatch    = runtime.NewError("player already in a match", CodeStateConflict)
	ErrNotQueued         = runtime.NewError("player not queued", CodeStateConflict)
	ErrMatchTerminal     = runtime.NewError("match already terminal", CodeStateConflict)
	ErrMatchNotJoinable  = runtime.NewError("match is not accepting players", CodeStateConflict)
	ErrWrongPhase        = runtime.NewError("operation not valid in current phase", CodeStateConflict)
	ErrAlreadyInWar      = runtime.NewError("player already participating in a war", CodeStateConflict)
	ErrBracketNotReady   = runtime.NewError("bracket slot not ready", CodeStateConflict)
	ErrAlreadyRegistered = runtime.NewError("participant already registered", CodeStateConflict)

	// ResourceExhaustion (code 8): queue full, too many concurrent wars/tournaments, cache full.
	ErrQueueFull       = runtime.NewError("matchmaking queue full", CodeResourceExhaustion)
	ErrTooManyWars     = runtime.NewError("guild has reached its concurrent war limit", CodeResourceExhaustion)
	ErrTournamentFull  = runtime.NewError("tournament has reached capacity", CodeResourceExhaustion)

	// Timeout (code 4): queue expiry, declaration expiry, check-in expiry.
	ErrQueueTimeout        = runtime.NewError("queue wait exceeded maximum", CodeTimeout)
	ErrDeclarationExpired  = runtime.NewError("war declaration expired", CodeTimeout)
	ErrCheckInExpired      = runtime.NewError("tournament check-in window expired", CodeTimeout)

	// ExternalFailure (code 14): a collaborator call failed; callers may retry.
	ErrTeleportFailed    = runtime.NewError("world teleport failed", CodeExternalFailure)
	ErrGrantFailed       = runtime.NewError("reward grant failed", CodeExternalFailure)
	ErrPersistFailed     = runtime.NewError("persistence write failed", CodeExternalFailure)
	ErrNotifyFailed      = runtime.NewError("notification delivery failed", CodeExternalFailure)
	ErrCollaboratorCall  = runtime.NewError("collaborator call failed", CodeExternalFailure)

	// Internal (code 13): invariant violation. The offending match/war/tournament
	// is marked Abandoned/Cancelled by the caller; rating is left untouched.
	ErrInternal             = runtime.NewError("internal invariant violation", CodeInternal)
	ErrMarshal              = runtime.NewError("cannot marshal payload", CodeInternal)
	ErrCouldNotReadStorage  = runtime.NewError("could not read storage", CodeInternal)
	ErrCouldNotWriteStorage = runtime.NewError("could not write storage", CodeInternal)
)
