package round

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/MJE43/mines-desktop-go/internal/payout"
)

func newTestMachine(t *testing.T, balance float64) *Machine {
	t.Helper()
	m, err := NewSeeded(DefaultConfig(), decimal.NewFromFloat(balance), "test_server_seed", "test_client_seed")
	if err != nil {
		t.Fatalf("NewSeeded failed: %v", err)
	}
	return m
}

// findCell returns the index of a cell with the wanted safety in the live
// grid. Grids are dense enough in both kinds at hazard count 15 that this
// never comes up empty; callers bump the density first when they need a
// guaranteed hazard.
func findCell(t *testing.T, s Snapshot, safe bool) int {
	t.Helper()
	for i, c := range s.Cells {
		if c == safe && !s.Revealed[i] {
			return i
		}
	}
	t.Fatalf("no unrevealed cell with safe=%v in grid", safe)
	return -1
}

func mustEqual(t *testing.T, got, want decimal.Decimal, label string) {
	t.Helper()
	if !got.Equal(want) {
		t.Errorf("%s = %s, want %s", label, got, want)
	}
}

func TestDeposit(t *testing.T) {
	m := newTestMachine(t, 0)

	snap, sig := m.Deposit(decimal.NewFromFloat(10))
	mustEqual(t, snap.Balance, decimal.NewFromFloat(10), "balance after deposit")
	if sig != SignalNone {
		t.Errorf("deposit emitted signal %q", sig)
	}

	snap, _ = m.Deposit(decimal.NewFromFloat(2.5))
	mustEqual(t, snap.Balance, decimal.NewFromFloat(12.5), "balance after second deposit")

	snap, _ = m.Deposit(decimal.NewFromFloat(-5))
	mustEqual(t, snap.Balance, decimal.NewFromFloat(12.5), "balance after negative deposit")
}

func TestSetStake(t *testing.T) {
	m := newTestMachine(t, 10)

	snap, _ := m.SetStake(decimal.NewFromFloat(4))
	mustEqual(t, snap.Stake, decimal.NewFromFloat(4), "stake")
	mustEqual(t, snap.PotentialPayout, payout.PotentialPayout(snap.Stake, snap.Multiplier), "potential payout")

	// Over balance: rejected.
	snap, _ = m.SetStake(decimal.NewFromFloat(11))
	mustEqual(t, snap.Stake, decimal.NewFromFloat(4), "stake after over-balance edit")

	// Negative: rejected.
	snap, _ = m.SetStake(decimal.NewFromFloat(-1))
	mustEqual(t, snap.Stake, decimal.NewFromFloat(4), "stake after negative edit")
}

func TestStakeAndHazardsFrozenAfterFirstReveal(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(2))
	m.LockIn()

	snap := m.Snapshot()
	idx := findCell(t, snap, true)
	snap, _ = m.Reveal(idx)
	if snap.RevealedCount() != 1 {
		t.Fatalf("expected 1 revealed cell, got %d", snap.RevealedCount())
	}

	after, _ := m.SetStake(decimal.NewFromFloat(1))
	mustEqual(t, after.Stake, decimal.NewFromFloat(2), "stake after post-reveal edit")

	cellsBefore := append([]bool(nil), after.Cells...)
	after, _ = m.SetHazardCount(7)
	if after.HazardCount != snap.HazardCount {
		t.Errorf("hazard count changed after reveal: %d", after.HazardCount)
	}
	for i := range cellsBefore {
		if after.Cells[i] != cellsBefore[i] {
			t.Fatal("cells redrawn by post-reveal hazard edit")
		}
	}
}

func TestSetHazardCountRedrawsGrid(t *testing.T) {
	m := newTestMachine(t, 10)
	before := m.Snapshot()

	snap, _ := m.SetHazardCount(15)
	if snap.HazardCount != 15 {
		t.Fatalf("hazard count = %d, want 15", snap.HazardCount)
	}
	if snap.Nonce == before.Nonce {
		t.Error("hazard edit did not advance the draw nonce")
	}

	// Bounds.
	snap, _ = m.SetHazardCount(0)
	if snap.HazardCount != 15 {
		t.Errorf("hazard count accepted 0: %d", snap.HazardCount)
	}
	snap, _ = m.SetHazardCount(DefaultMaxHazards + 1)
	if snap.HazardCount != 15 {
		t.Errorf("hazard count accepted above max: %d", snap.HazardCount)
	}
}

func TestRevealRequiresLockIn(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(2))

	snap, sig := m.Reveal(0)
	if snap.RevealedCount() != 0 || sig != SignalNone {
		t.Error("reveal accepted without lock-in")
	}
	mustEqual(t, snap.Balance, decimal.NewFromFloat(10), "balance after rejected reveal")
}

func TestLockInRequiresStakeWithinBalance(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(10))

	// Drain the balance below the stake by losing a round first.
	m.SetHazardCount(15)
	m.LockIn()
	idx := findCell(t, m.Snapshot(), false)
	snap, _ := m.Reveal(idx)
	if !snap.GameOver {
		t.Fatal("expected game over on hazard reveal")
	}

	snap, _ = m.NewRound()
	mustEqual(t, snap.Balance, decimal.Zero, "balance carried into new round")
	mustEqual(t, snap.Stake, decimal.NewFromFloat(10), "stake carried into new round")

	snap, _ = m.LockIn()
	if snap.IsLockedIn {
		t.Error("lock-in accepted with stake above balance")
	}
}

func TestFirstRevealDebitsExactlyOnce(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(2))
	m.LockIn()

	snap := m.Snapshot()
	snap, _ = m.Reveal(findCell(t, snap, true))
	mustEqual(t, snap.Balance, decimal.NewFromFloat(8), "balance after first reveal")

	snap, _ = m.Reveal(findCell(t, snap, true))
	mustEqual(t, snap.Balance, decimal.NewFromFloat(8), "balance after second reveal")
	if snap.Score != 2 {
		t.Errorf("score = %d, want 2", snap.Score)
	}
}

func TestFirstRevealRejectedWhenStakeExceedsBalance(t *testing.T) {
	// The lock-in guard normally prevents this state; the reveal-time check
	// is the last line of defense for the debit invariant, so force the
	// state directly.
	m := newTestMachine(t, 10)
	m.snap.IsLockedIn = true
	m.snap.Stake = decimal.NewFromFloat(20)

	snap, sig := m.Reveal(0)
	if snap.RevealedCount() != 0 || sig != SignalNone {
		t.Error("reveal accepted with stake above balance")
	}
	mustEqual(t, snap.Balance, decimal.NewFromFloat(10), "balance unchanged by rejected reveal")
	if snap.IsPlaying {
		t.Error("rejected reveal set isPlaying")
	}
}

func TestSafeReveal(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(2))
	m.LockIn()

	snap := m.Snapshot()
	base := snap.Multiplier
	snap, sig := m.Reveal(findCell(t, snap, true))

	if sig != SignalSafeReveal {
		t.Errorf("signal = %q, want %q", sig, SignalSafeReveal)
	}
	if snap.Score != 1 {
		t.Errorf("score = %d, want 1", snap.Score)
	}
	if !snap.IsPlaying {
		t.Error("isPlaying should be true after first reveal")
	}
	if snap.Multiplier <= base {
		t.Errorf("multiplier %v did not grow past base %v", snap.Multiplier, base)
	}
	mustEqual(t, snap.PotentialPayout, payout.PotentialPayout(snap.Stake, snap.Multiplier), "potential payout")
}

func TestHazardRevealForfeitsStake(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(10))
	m.SetHazardCount(15)
	m.LockIn()

	snap, sig := m.Reveal(findCell(t, m.Snapshot(), false))
	if sig != SignalHazardReveal {
		t.Errorf("signal = %q, want %q", sig, SignalHazardReveal)
	}
	if !snap.GameOver {
		t.Error("gameOver should be set")
	}
	if snap.IsPlaying {
		t.Error("isPlaying should be cleared")
	}
	mustEqual(t, snap.Balance, decimal.Zero, "balance after forfeit")

	// Terminal: further reveals are no-ops.
	snap2, sig2 := m.Reveal(findCell(t, snap, true))
	if snap2.RevealedCount() != snap.RevealedCount() || sig2 != SignalNone {
		t.Error("reveal accepted after game over")
	}
}

func TestRevealRejectsBadIndexes(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(2))
	m.LockIn()

	for _, idx := range []int{-1, DefaultCellCount, DefaultCellCount + 10} {
		snap, sig := m.Reveal(idx)
		if snap.RevealedCount() != 0 || sig != SignalNone {
			t.Errorf("reveal accepted out-of-range index %d", idx)
		}
	}

	snap := m.Snapshot()
	idx := findCell(t, snap, true)
	m.Reveal(idx)
	snap, sig := m.Reveal(idx)
	if snap.RevealedCount() != 1 || sig != SignalNone {
		t.Error("reveal accepted an already-revealed index")
	}
}

func TestCashOut(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(2))
	m.LockIn()

	snap, _ := m.Reveal(findCell(t, m.Snapshot(), true))
	payoutDue := payout.PotentialPayout(snap.Stake, snap.Multiplier)
	balanceBefore := snap.Balance

	snap, sig := m.CashOut()
	if sig != SignalWin {
		t.Errorf("signal = %q, want %q", sig, SignalWin)
	}
	mustEqual(t, snap.Balance, balanceBefore.Add(payoutDue), "balance after cash-out")

	// Fresh round.
	if snap.RevealedCount() != 0 || snap.Score != 0 || snap.GameOver || snap.IsPlaying || snap.IsLockedIn {
		t.Error("cash-out did not produce a fresh round")
	}
	if snap.Multiplier != DefaultBaseMultiplier {
		t.Errorf("multiplier = %v, want base %v", snap.Multiplier, DefaultBaseMultiplier)
	}
	mustEqual(t, snap.Stake, decimal.NewFromFloat(2), "stake carried forward")
}

func TestCashOutWithoutRevealCreditsNothing(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(2))
	m.LockIn()

	snap, sig := m.CashOut()
	if sig != SignalNone {
		t.Errorf("signal = %q, want none", sig)
	}
	mustEqual(t, snap.Balance, decimal.NewFromFloat(10), "balance after empty cash-out")
}

func TestCashOutAfterGameOverCreditsNothing(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(2))
	m.SetHazardCount(15)
	m.LockIn()
	m.Reveal(findCell(t, m.Snapshot(), false))

	snap, sig := m.CashOut()
	if sig != SignalNone {
		t.Errorf("signal = %q, want none", sig)
	}
	mustEqual(t, snap.Balance, decimal.NewFromFloat(8), "balance after post-loss cash-out")
	if snap.GameOver {
		t.Error("cash-out should reset gameOver")
	}
}

func TestNewRoundResetsAndCarries(t *testing.T) {
	m := newTestMachine(t, 10)
	m.SetStake(decimal.NewFromFloat(2))
	m.SetHazardCount(5)
	m.LockIn()
	m.Reveal(findCell(t, m.Snapshot(), true))

	prev := m.Snapshot()
	snap, _ := m.NewRound()

	if snap.RoundID == prev.RoundID {
		t.Error("new round kept the old round ID")
	}
	mustEqual(t, snap.Balance, prev.Balance, "balance carried")
	mustEqual(t, snap.Stake, prev.Stake, "stake carried")
	if snap.HazardCount != 5 {
		t.Errorf("hazard count = %d, want 5", snap.HazardCount)
	}
	if snap.RevealedCount() != 0 || snap.Score != 0 || snap.IsLockedIn || snap.IsPlaying || snap.GameOver {
		t.Error("new round did not reset progress flags")
	}
	if snap.Multiplier != DefaultBaseMultiplier {
		t.Errorf("multiplier = %v, want base", snap.Multiplier)
	}
}

func TestFullWinScenario(t *testing.T) {
	m := newTestMachine(t, 0)

	snap, _ := m.Deposit(decimal.NewFromFloat(10))
	mustEqual(t, snap.Balance, decimal.NewFromFloat(10), "balance after deposit")

	snap, _ = m.SetStake(decimal.NewFromFloat(2))
	mustEqual(t, snap.Stake, decimal.NewFromFloat(2), "stake")

	m.LockIn()
	snap, _ = m.Reveal(findCell(t, m.Snapshot(), true))
	mustEqual(t, snap.Balance, decimal.NewFromFloat(8), "balance after reveal")
	if snap.Score != 1 {
		t.Fatalf("score = %d, want 1", snap.Score)
	}
	if snap.Multiplier <= DefaultBaseMultiplier {
		t.Fatalf("multiplier = %v, want > %v", snap.Multiplier, DefaultBaseMultiplier)
	}

	want := decimal.NewFromFloat(8).Add(payout.PotentialPayout(snap.Stake, snap.Multiplier))
	snap, _ = m.CashOut()
	mustEqual(t, snap.Balance, want, "balance after cash-out")
}

func TestBalanceNeverNegative(t *testing.T) {
	m := newTestMachine(t, 5)
	m.SetStake(decimal.NewFromFloat(5))
	m.SetHazardCount(15)

	// Grind rounds until broke, then keep hammering every action.
	for i := 0; i < 50; i++ {
		m.LockIn()
		snap := m.Snapshot()
		if !snap.IsLockedIn {
			break // stake exceeds balance, nothing left to play
		}
		for j := 0; j < DefaultCellCount; j++ {
			snap, _ = m.Reveal(j)
			if snap.Balance.IsNegative() {
				t.Fatalf("balance went negative: %s", snap.Balance)
			}
			if snap.GameOver {
				break
			}
		}
		snap, _ = m.NewRound()
		if snap.Balance.IsNegative() {
			t.Fatalf("balance went negative after new round: %s", snap.Balance)
		}
	}

	for _, apply := range []func() (Snapshot, Signal){
		func() (Snapshot, Signal) { return m.Reveal(3) },
		func() (Snapshot, Signal) { return m.CashOut() },
		func() (Snapshot, Signal) { return m.SetStake(decimal.NewFromFloat(100)) },
		func() (Snapshot, Signal) { return m.Deposit(decimal.NewFromFloat(-3)) },
	} {
		if snap, _ := apply(); snap.Balance.IsNegative() {
			t.Fatalf("balance went negative: %s", snap.Balance)
		}
	}
}

func TestProofDisclosedOnRoundEnd(t *testing.T) {
	m := newTestMachine(t, 10)

	if _, ok := m.LastProof(); ok {
		t.Fatal("proof available before any round finished")
	}

	m.SetStake(decimal.NewFromFloat(2))
	m.SetHazardCount(15)
	m.LockIn()
	played := m.Snapshot()
	m.Reveal(findCell(t, played, false))

	proof, ok := m.LastProof()
	if !ok {
		t.Fatal("no proof after finished round")
	}
	if proof.RoundID != played.RoundID {
		t.Errorf("proof round ID %s, want %s", proof.RoundID, played.RoundID)
	}

	derived := DeriveCells(DefaultCellCount, proof.HazardCount, proof.ServerSeed, proof.ClientSeed, proof.Nonce)
	for i := range derived {
		if derived[i] != proof.Cells[i] {
			t.Fatalf("derived grid differs from proof at cell %d", i)
		}
	}

	// Disclosure rotates the server seed for the next round.
	next, _ := m.NewRound()
	if next.ServerSeedHash == played.ServerSeedHash {
		t.Error("server seed not rotated after disclosure")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	m := newTestMachine(t, 10)
	snap := m.Snapshot()
	snap.Revealed[0] = true
	snap.Cells[0] = !snap.Cells[0]

	if m.Snapshot().RevealedCount() != 0 {
		t.Error("mutating a returned snapshot leaked into the machine")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"zero cells", Config{CellCount: 0, MaxHazards: 1, BaseMultiplier: 1.2, RiskFactor: 0.1}, false},
		{"hazards at cell count", Config{CellCount: 25, MaxHazards: 25, BaseMultiplier: 1.2, RiskFactor: 0.1}, false},
		{"base at 1.0", Config{CellCount: 25, MaxHazards: 15, BaseMultiplier: 1.0, RiskFactor: 0.1}, false},
		{"zero risk", Config{CellCount: 25, MaxHazards: 15, BaseMultiplier: 1.2, RiskFactor: 0}, false},
		{"small grid", Config{CellCount: 9, MaxHazards: 5, BaseMultiplier: 1.5, RiskFactor: 0.2}, true},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
