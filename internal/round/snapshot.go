package round

import "github.com/shopspring/decimal"

// Signal is the advisory event an action emits for the host to render.
// Signals carry no payload and alter no state.
type Signal string

const (
	SignalNone         Signal = ""
	SignalSafeReveal   Signal = "safe-reveal"
	SignalHazardReveal Signal = "hazard-reveal"
	SignalWin          Signal = "win"
)

// Snapshot is the frontend-facing state of one round. Actions never mutate
// a snapshot in place; each accepted action replaces it wholesale.
type Snapshot struct {
	RoundID string `json:"roundId"`

	// Cells is the hidden layout: true = gem (safe), false = ruby (hazard).
	// Fixed for the life of the round; redrawn only by NewRound, CashOut,
	// or a pre-reveal SetHazardCount.
	Cells []bool `json:"cells"`

	// Revealed entries are permanent for the round.
	Revealed []bool `json:"revealed"`

	HazardCount int `json:"hazardCount"`

	// Score counts safe reveals so far.
	Score int `json:"score"`

	Stake           decimal.Decimal `json:"stake"`
	Multiplier      float64         `json:"multiplier"`
	PotentialPayout decimal.Decimal `json:"potentialPayout"`
	Balance         decimal.Decimal `json:"balance"`

	IsPlaying  bool `json:"isPlaying"`
	IsLockedIn bool `json:"isLockedIn"`
	GameOver   bool `json:"gameOver"`

	// CurrentOdds is the informational safe-probability of the next reveal.
	CurrentOdds float64 `json:"currentOdds"`

	// Fairness fields: the server seed itself stays hidden until the round
	// ends (see Machine.Proof).
	ServerSeedHash string `json:"serverSeedHash"`
	ClientSeed     string `json:"clientSeed"`
	Nonce          uint64 `json:"nonce"`
}

// RevealedCount reports how many cells have been uncovered.
func (s Snapshot) RevealedCount() int {
	n := 0
	for _, r := range s.Revealed {
		if r {
			n++
		}
	}
	return n
}

// clone deep-copies the snapshot so the caller can mutate the copy without
// touching the original.
func (s Snapshot) clone() Snapshot {
	out := s
	out.Cells = append([]bool(nil), s.Cells...)
	out.Revealed = append([]bool(nil), s.Revealed...)
	return out
}

// Proof lets anyone re-derive a finished round's grid from its seeds.
type Proof struct {
	RoundID     string `json:"roundId"`
	ServerSeed  string `json:"serverSeed"`
	ClientSeed  string `json:"clientSeed"`
	Nonce       uint64 `json:"nonce"`
	HazardCount int    `json:"hazardCount"`
	Cells       []bool `json:"cells"`
}
