package table

import (
	"github.com/shopspring/decimal"

	"github.com/MJE43/mines-desktop-go/internal/round"
)

// CellView is what the frontend sees for one cell.
type CellView string

const (
	CellHidden CellView = "hidden"
	CellGem    CellView = "gem"
	CellRuby   CellView = "ruby"
)

// View is the frontend-facing state. Unlike round.Snapshot it masks the
// layout: unrevealed cells stay hidden until the round ends, so a frontend
// (or anything watching its traffic) cannot read the grid mid-round.
type View struct {
	RoundID         string          `json:"roundId"`
	Cells           []CellView      `json:"cells"`
	HazardCount     int             `json:"hazardCount"`
	Score           int             `json:"score"`
	Stake           decimal.Decimal `json:"stake"`
	Multiplier      float64         `json:"multiplier"`
	PotentialPayout decimal.Decimal `json:"potentialPayout"`
	Balance         decimal.Decimal `json:"balance"`
	IsPlaying       bool            `json:"isPlaying"`
	IsLockedIn      bool            `json:"isLockedIn"`
	GameOver        bool            `json:"gameOver"`
	CurrentOdds     float64         `json:"currentOdds"`
	ServerSeedHash  string          `json:"serverSeedHash"`
	ClientSeed      string          `json:"clientSeed"`
	Nonce           uint64          `json:"nonce"`
}

// redact converts a core snapshot into the masked frontend view. A finished
// round discloses the whole layout.
func redact(s round.Snapshot) View {
	cells := make([]CellView, len(s.Cells))
	for i := range s.Cells {
		switch {
		case s.Revealed[i] || s.GameOver:
			if s.Cells[i] {
				cells[i] = CellGem
			} else {
				cells[i] = CellRuby
			}
		default:
			cells[i] = CellHidden
		}
	}
	return View{
		RoundID:         s.RoundID,
		Cells:           cells,
		HazardCount:     s.HazardCount,
		Score:           s.Score,
		Stake:           s.Stake,
		Multiplier:      s.Multiplier,
		PotentialPayout: s.PotentialPayout,
		Balance:         s.Balance,
		IsPlaying:       s.IsPlaying,
		IsLockedIn:      s.IsLockedIn,
		GameOver:        s.GameOver,
		CurrentOdds:     s.CurrentOdds,
		ServerSeedHash:  s.ServerSeedHash,
		ClientSeed:      s.ClientSeed,
		Nonce:           s.Nonce,
	}
}
