// Package round owns the state machine for a single mines round: stake and
// hazard edits, lock-in, reveals, cash-out, and the transitions between
// rounds. Actions with unmet preconditions are silent no-ops that return the
// unchanged snapshot, so hosts never branch on errors.
package round

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MJE43/mines-desktop-go/internal/fairness"
	"github.com/MJE43/mines-desktop-go/internal/payout"
)

// Machine applies player actions to the live round and yields immutable
// snapshots. It is not safe for concurrent use; hosts apply actions one at
// a time (see table.Module).
type Machine struct {
	cfg        Config
	serverSeed string
	clientSeed string
	nonce      uint64
	snap       Snapshot
	lastProof  *Proof
}

// New creates a machine with a random seed pair and the given starting
// balance. The first round begins fresh: no stake locked, nothing revealed.
func New(cfg Config, balance decimal.Decimal) (*Machine, error) {
	return NewSeeded(cfg, balance, fairness.NewServerSeed(), fairness.NewServerSeed()[:16])
}

// NewSeeded is New with explicit seeds, for hosts that persist the seed pair
// and for deterministic tests.
func NewSeeded(cfg Config, balance decimal.Decimal, serverSeed, clientSeed string) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	m := &Machine{
		cfg:        cfg,
		serverSeed: serverSeed,
		clientSeed: clientSeed,
	}
	hazards := defaultHazardCount
	if hazards > cfg.MaxHazards {
		hazards = cfg.MaxHazards
	}
	m.snap = m.fresh(balance, decimal.Zero, hazards)
	return m, nil
}

// Config returns the machine's grid parameters.
func (m *Machine) Config() Config { return m.cfg }

// Snapshot returns a copy of the live state with derived values recomputed.
func (m *Machine) Snapshot() Snapshot {
	return m.derive(m.snap.clone())
}

// LastProof returns the seeds and layout of the most recently finished
// round, if any round has finished. The server seed is rotated at the moment
// of disclosure, so a published proof never predicts future grids.
func (m *Machine) LastProof() (Proof, bool) {
	if m.lastProof == nil {
		return Proof{}, false
	}
	return *m.lastProof, true
}

// Deposit credits the balance. Negative amounts are a no-op.
func (m *Machine) Deposit(amount decimal.Decimal) (Snapshot, Signal) {
	if amount.IsNegative() {
		return m.Snapshot(), SignalNone
	}
	next := m.snap.clone()
	next.Balance = next.Balance.Add(amount)
	return m.commit(next), SignalNone
}

// SetStake edits the stake. Allowed only before the first reveal of the
// round and only up to the current balance.
func (m *Machine) SetStake(stake decimal.Decimal) (Snapshot, Signal) {
	if m.snap.RevealedCount() > 0 || stake.IsNegative() || stake.GreaterThan(m.snap.Balance) {
		return m.Snapshot(), SignalNone
	}
	next := m.snap.clone()
	next.Stake = stake
	return m.commit(next), SignalNone
}

// SetHazardCount edits the hazard density and redraws the grid. Allowed
// only before the first reveal of the round.
func (m *Machine) SetHazardCount(n int) (Snapshot, Signal) {
	if m.snap.RevealedCount() > 0 || n < 1 || n > m.cfg.MaxHazards {
		return m.Snapshot(), SignalNone
	}
	next := m.snap.clone()
	next.HazardCount = n
	next.Cells = m.drawCells(n)
	next.Nonce = m.nonce
	return m.commit(next), SignalNone
}

// NewRound abandons the current round and starts a fresh one, carrying
// forward balance, stake, and hazard count. Always allowed; a debited stake
// on an unfinished round is forfeited.
func (m *Machine) NewRound() (Snapshot, Signal) {
	next := m.fresh(m.snap.Balance, m.snap.Stake, m.snap.HazardCount)
	return m.commit(next), SignalNone
}

// LockIn commits the current stake so reveals become possible.
func (m *Machine) LockIn() (Snapshot, Signal) {
	if m.snap.Stake.GreaterThan(m.snap.Balance) {
		return m.Snapshot(), SignalNone
	}
	next := m.snap.clone()
	next.IsLockedIn = true
	return m.commit(next), SignalNone
}

// Reveal uncovers one cell. The first reveal of the round debits the stake;
// from that moment the round's economics are frozen. A gem bumps score and
// multiplier; a ruby ends the round and forfeits the stake.
func (m *Machine) Reveal(index int) (Snapshot, Signal) {
	s := m.snap
	if !s.IsLockedIn || s.GameOver || index < 0 || index >= m.cfg.CellCount || s.Revealed[index] {
		return m.Snapshot(), SignalNone
	}

	next := s.clone()
	if s.RevealedCount() == 0 {
		// First click: the stake leaves the balance exactly once per round.
		if next.Stake.GreaterThan(next.Balance) {
			return m.Snapshot(), SignalNone
		}
		next.Balance = next.Balance.Sub(next.Stake)
		next.IsPlaying = true
	}

	next.Revealed[index] = true

	if next.Cells[index] {
		next.Score++
		next.Multiplier = payout.Multiplier(m.cfg.BaseMultiplier, m.cfg.RiskFactor, next.Score)
		return m.commit(next), SignalSafeReveal
	}

	next.GameOver = true
	next.IsPlaying = false
	snap := m.commit(next)
	m.discloseRound()
	return snap, SignalHazardReveal
}

// CashOut banks stake x multiplier and immediately starts a fresh round with
// the credited balance. On a round where no stake was debited (nothing
// revealed, or the round already ended) it credits nothing and only resets.
func (m *Machine) CashOut() (Snapshot, Signal) {
	s := m.snap
	signal := SignalNone
	balance := s.Balance

	if s.IsPlaying && !s.GameOver {
		balance = balance.Add(payout.PotentialPayout(s.Stake, s.Multiplier))
		signal = SignalWin
		m.discloseRound()
	}

	next := m.fresh(balance, s.Stake, s.HazardCount)
	return m.commit(next), signal
}

// fresh builds the starting snapshot of a new round.
func (m *Machine) fresh(balance, stake decimal.Decimal, hazardCount int) Snapshot {
	s := Snapshot{
		RoundID:        uuid.New().String(),
		Revealed:       make([]bool, m.cfg.CellCount),
		HazardCount:    hazardCount,
		Stake:          stake,
		Multiplier:     m.cfg.BaseMultiplier,
		Balance:        balance,
		ServerSeedHash: fairness.HashSeed(m.serverSeed),
		ClientSeed:     m.clientSeed,
	}
	s.Cells = m.drawCells(hazardCount)
	s.Nonce = m.nonce
	return s
}

// drawCells advances the nonce and generates the next layout.
func (m *Machine) drawCells(hazardCount int) []bool {
	m.nonce++
	return DeriveCells(m.cfg.CellCount, hazardCount, m.serverSeed, m.clientSeed, m.nonce)
}

// DeriveCells computes a layout from seeds: one independent Bernoulli draw
// per cell, hazard iff the cell's float falls below hazardCount/cellCount.
// The realized hazard count therefore varies round to round; the expectation,
// not the exact count, is what the density setting fixes. Exported so a
// finished round's Proof can be checked without a Machine.
func DeriveCells(cellCount, hazardCount int, serverSeed, clientSeed string, nonce uint64) []bool {
	ratio := float64(hazardCount) / float64(cellCount)
	floats := fairness.Floats(serverSeed, clientSeed, nonce, cellCount)
	cells := make([]bool, cellCount)
	for i, f := range floats {
		cells[i] = f >= ratio
	}
	return cells
}

// discloseRound captures the finished round's proof and rotates the server
// seed so the disclosure cannot be replayed forward.
func (m *Machine) discloseRound() {
	m.lastProof = &Proof{
		RoundID:     m.snap.RoundID,
		ServerSeed:  m.serverSeed,
		ClientSeed:  m.clientSeed,
		Nonce:       m.snap.Nonce,
		HazardCount: m.snap.HazardCount,
		Cells:       append([]bool(nil), m.snap.Cells...),
	}
	m.serverSeed = fairness.NewServerSeed()
	m.nonce = 0
}

// commit installs the next snapshot and returns a derived copy.
func (m *Machine) commit(next Snapshot) Snapshot {
	m.snap = m.derive(next)
	return m.snap.clone()
}

// derive recomputes the read-only values every snapshot carries.
func (m *Machine) derive(s Snapshot) Snapshot {
	s.CurrentOdds = payout.Odds(m.cfg.CellCount, s.HazardCount, s.RevealedCount())
	s.PotentialPayout = payout.PotentialPayout(s.Stake, s.Multiplier)
	return s
}
