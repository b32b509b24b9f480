// Package table drives the round machine on behalf of the hosts (Wails
// bindings, control API, autobet engine). It serializes actions, persists
// the wallet after balance-affecting actions, and forwards the machine's
// advisory signals to an injected emitter.
package table

import (
	"fmt"
	"log"
	"math"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/MJE43/mines-desktop-go/internal/round"
	"github.com/MJE43/mines-desktop-go/internal/store"
)

// Event names pushed to the frontend. Signal events are advisory and carry
// no payload; the state event carries the redacted view.
const (
	EventSafeReveal   = "round:safe-reveal"
	EventHazardReveal = "round:hazard-reveal"
	EventWin          = "round:win"
	EventState        = "round:state"
)

// Emitter pushes an event to whatever frontend is attached. A nil emitter
// drops events.
type Emitter func(event string, payload any)

// WalletStore is the persistence capability the host injects. The module
// never knows the storage mechanism behind it.
type WalletStore interface {
	Load() (store.Wallet, error)
	Save(store.Wallet) error
}

// Module owns the live machine. All action methods are safe for concurrent
// use; actions apply one at a time in arrival order.
type Module struct {
	mu      sync.Mutex
	machine *round.Machine
	wallet  WalletStore
	emit    Emitter
	logger  *log.Logger
}

// NewModule loads the persisted wallet and builds a machine around it. The
// player's last stake and hazard density carry over between sessions.
func NewModule(cfg round.Config, wallet WalletStore) (*Module, error) {
	w, err := wallet.Load()
	if err != nil {
		return nil, fmt.Errorf("wallet load failed: %w", err)
	}

	machine, err := round.New(cfg, w.Balance)
	if err != nil {
		return nil, err
	}

	m := &Module{
		machine: machine,
		wallet:  wallet,
		logger:  log.New(os.Stdout, "[table] ", log.LstdFlags),
	}

	// Restore table settings; both are silently clamped to the fresh-round
	// preconditions (stake within balance, hazard count within bounds).
	if w.HazardCount > 0 {
		machine.SetHazardCount(w.HazardCount)
	}
	if w.Stake.IsPositive() {
		machine.SetStake(w.Stake)
	}
	return m, nil
}

// SetEmitter attaches the frontend event sink. Must be called before any
// host starts dispatching actions.
func (m *Module) SetEmitter(emit Emitter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emit = emit
}

// Deposit credits the balance. NaN, infinite, and negative amounts are
// no-ops.
func (m *Module) Deposit(amount float64) View {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return m.View()
	}
	return m.apply(func(mc *round.Machine) (round.Snapshot, round.Signal) {
		return mc.Deposit(decimal.NewFromFloat(amount))
	})
}

// SetStake edits the stake for the current round.
func (m *Module) SetStake(stake float64) View {
	if math.IsNaN(stake) || math.IsInf(stake, 0) {
		return m.View()
	}
	return m.apply(func(mc *round.Machine) (round.Snapshot, round.Signal) {
		return mc.SetStake(decimal.NewFromFloat(stake))
	})
}

// SetHazardCount edits the hazard density for the current round.
func (m *Module) SetHazardCount(n int) View {
	return m.apply(func(mc *round.Machine) (round.Snapshot, round.Signal) {
		return mc.SetHazardCount(n)
	})
}

// NewRound abandons the current round.
func (m *Module) NewRound() View {
	return m.apply((*round.Machine).NewRound)
}

// LockIn commits the stake.
func (m *Module) LockIn() View {
	return m.apply((*round.Machine).LockIn)
}

// Reveal uncovers a cell.
func (m *Module) Reveal(index int) View {
	return m.apply(func(mc *round.Machine) (round.Snapshot, round.Signal) {
		return mc.Reveal(index)
	})
}

// CashOut banks the current payout and starts the next round.
func (m *Module) CashOut() View {
	return m.apply((*round.Machine).CashOut)
}

// Config returns the table's grid parameters.
func (m *Module) Config() round.Config {
	return m.machine.Config()
}

// View returns the redacted state without applying an action.
func (m *Module) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return redact(m.machine.Snapshot())
}

// Snapshot returns the full core state, hidden cells included. Internal
// hosts (tests, the autobet engine) use it; the frontend only ever sees
// views.
func (m *Module) Snapshot() round.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.machine.Snapshot()
}

// VerifyResult pairs a finished round's proof with an independent re-draw
// of its grid.
type VerifyResult struct {
	Proof   round.Proof `json:"proof"`
	Derived []bool      `json:"derived"`
	Match   bool        `json:"match"`
}

// VerifyRound re-derives the most recently finished round's grid from its
// disclosed seeds. roundID guards against racing a new round ending between
// the caller reading an ID and asking for its proof.
func (m *Module) VerifyRound(roundID string) (VerifyResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	proof, ok := m.machine.LastProof()
	if !ok {
		return VerifyResult{}, fmt.Errorf("no finished round to verify")
	}
	if roundID != "" && roundID != proof.RoundID {
		return VerifyResult{}, fmt.Errorf("round %s is not available for verification", roundID)
	}

	cfg := m.machine.Config()
	derived := round.DeriveCells(cfg.CellCount, proof.HazardCount, proof.ServerSeed, proof.ClientSeed, proof.Nonce)
	match := len(derived) == len(proof.Cells)
	if match {
		for i := range derived {
			if derived[i] != proof.Cells[i] {
				match = false
				break
			}
		}
	}
	return VerifyResult{Proof: proof, Derived: derived, Match: match}, nil
}

// Shutdown persists the final wallet state.
func (m *Module) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.persist(m.machine.Snapshot())
}

// apply runs one action under the lock, persists the wallet, and emits the
// resulting events.
func (m *Module) apply(action func(*round.Machine) (round.Snapshot, round.Signal)) View {
	m.mu.Lock()
	snap, sig := action(m.machine)
	if err := m.persist(snap); err != nil {
		m.logger.Printf("wallet persist failed: %v", err)
	}
	emit := m.emit
	m.mu.Unlock()

	v := redact(snap)
	if emit != nil {
		switch sig {
		case round.SignalSafeReveal:
			emit(EventSafeReveal, nil)
		case round.SignalHazardReveal:
			emit(EventHazardReveal, nil)
		case round.SignalWin:
			emit(EventWin, nil)
		}
		emit(EventState, v)
	}
	return v
}

func (m *Module) persist(snap round.Snapshot) error {
	return m.wallet.Save(store.Wallet{
		Balance:     snap.Balance,
		Stake:       snap.Stake,
		HazardCount: snap.HazardCount,
	})
}
