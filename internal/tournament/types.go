// Package tournament implements bracket generation and round scheduling
// atop the arena engine. Nakama tournaments are
// leaderboards with a schedule, not brackets, so this package runs its own
// bracket state machine and does not call Nakama's tournament primitives;
// Nakama storage is used only to persist final standings (see service.go).
package tournament

// Format selects the bracket generation algorithm.
type Format string

const (
	FormatSingleElimination Format = "single_elimination"
	FormatDoubleElimination Format = "double_elimination"
	FormatRoundRobin        Format = "round_robin"
	FormatSwiss             Format = "swiss"
)

// State is the tournament lifecycle state.
type State string

const (
	StateRegistration     State = "registration"
	StateCheckIn          State = "check_in"
	StateBracketGeneration State = "bracket_generation"
	StateInProgress       State = "in_progress"
	StateCompleted        State = "completed"
	StateCancelled        State = "cancelled"
)

// MatchState is a bracket slot's own lifecycle.
type MatchState string

const (
	MatchScheduled  MatchState = "scheduled"
	MatchReady      MatchState = "ready"
	MatchInProgress MatchState = "in_progress"
	MatchCompleted  MatchState = "completed"
	MatchNoShow     MatchState = "no_show"
)

// Participant is one registered entrant.
type Participant struct {
	PlayerID   string
	Seed       int
	Rating     int32
	CheckedIn  bool
	Eliminated bool
}

// BracketMatch is one bracket slot.
type BracketMatch struct {
	Round       int
	Position    int
	Bracket     string // "winners", "losers" or "grand_final"; "" for single-elim/round-robin/swiss
	P1, P2      string // participant ids; "" means a bye or not yet populated
	State       MatchState
	Winner      string
	ArenaMatchID string

	// LoserRouted marks a completed double-elimination match already pushed
	// into the losers-bracket queue (a winners-bracket match's loser, or a
	// losers-bracket match's winner), so each is routed exactly once.
	LoserRouted bool
}

// Config configures a new tournament instance.
type Config struct {
	Mode            string
	Format          Format
	MinParticipants int
	MaxParticipants int
	RegistrationWindowSeconds int64
	CheckInWindowSeconds      int64
}

// Tournament is the full aggregate. A Tournament exclusively owns its bracket;
// it only holds arena MatchIds to correlate slots to live matches.
type Tournament struct {
	ID            string
	Config        Config
	Participants  map[string]*Participant
	Bracket       []*BracketMatch
	CurrentRound  int
	State         State
	CreatedAtUnix int64
	RegistrationEndUnix int64
	CheckInEndUnix      int64

	// Double-elimination-only bookkeeping: a FIFO of winners-bracket losers
	// and losers-bracket winners waiting for a losers-bracket opponent, and
	// the two brackets' eventual
	// champions once each is fully reduced to a single survivor. Unused by
	// the other three formats.
	LosersQueue     []string
	WinnersChampion string
	LosersChampion  string
	GrandFinal      *BracketMatch
}
