package scripting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MJE43/mines-desktop-go/internal/table"
)

// State is the engine's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateStopped State = "stopped"
	StateError   State = "error"
)

// Driver is the table surface the engine plays against. *table.Module
// implements it.
type Driver interface {
	SetStake(stake float64) table.View
	SetHazardCount(n int) table.View
	NewRound() table.View
	LockIn() table.View
	Reveal(index int) table.View
	CashOut() table.View
	View() table.View
}

// EventEmitter pushes engine progress to the frontend.
type EventEmitter interface {
	EmitScriptState(snap EngineSnapshot)
	EmitScriptLog(entries []LogEntry)
}

// EngineSnapshot is the serializable engine state.
type EngineSnapshot struct {
	State           State       `json:"state"`
	Error           string      `json:"error,omitempty"`
	Stats           *Statistics `json:"stats"`
	RoundsPerSecond float64     `json:"roundsPerSecond"`
}

// Engine runs one autobet session: execute the script once to register
// dobet(), then loop full rounds (stake, lock, reveal picks, cash out)
// until the script stops, errors, or runs out of balance.
type Engine struct {
	mu     sync.RWMutex
	state  State
	err    error
	cancel context.CancelFunc
	done   chan struct{}

	vm    *VM
	vars  *Variables
	stats *Statistics

	driver  Driver
	emitter EventEmitter

	startTime time.Time
}

// NewEngine creates an idle engine bound to a table driver. emitter may be
// nil.
func NewEngine(driver Driver, emitter EventEmitter) *Engine {
	return &Engine{
		state:   StateIdle,
		driver:  driver,
		emitter: emitter,
	}
}

// Start executes the script source and begins the round loop in the
// background. maxRounds <= 0 means no round limit.
func (e *Engine) Start(source string, maxRounds int) error {
	e.mu.Lock()
	if e.state == StateRunning {
		e.mu.Unlock()
		return fmt.Errorf("a script session is already running")
	}

	vm := NewVM()
	if err := vm.Execute(source); err != nil {
		e.state = StateError
		e.err = err
		e.mu.Unlock()
		return err
	}

	v := e.driver.View()
	stats := &Statistics{
		StartBalance: v.Balance.InexactFloat64(),
		Balance:      v.Balance.InexactFloat64(),
	}
	e.vm = vm
	e.stats = stats
	e.vars = &Variables{
		Balance: v.Balance.InexactFloat64(),
		NextBet: v.Stake.InexactFloat64(),
		Mines:   v.HazardCount,
		Stats:   stats,
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.state = StateRunning
	e.err = nil
	e.startTime = time.Now()
	e.mu.Unlock()

	go e.run(ctx, maxRounds)
	return nil
}

// Stop cancels the running session, if any.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current session finishes. No-op when idle.
func (e *Engine) Wait() {
	e.mu.RLock()
	done := e.done
	e.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Status returns the current engine snapshot.
func (e *Engine) Status() EngineSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Logs returns the script's log buffer.
func (e *Engine) Logs() []LogEntry {
	e.mu.RLock()
	vm := e.vm
	e.mu.RUnlock()
	if vm == nil {
		return nil
	}
	return vm.Logs()
}

func (e *Engine) snapshotLocked() EngineSnapshot {
	snap := EngineSnapshot{State: e.state}
	if e.err != nil {
		snap.Error = e.err.Error()
	}
	if e.stats != nil {
		st := *e.stats
		snap.Stats = &st
		if elapsed := time.Since(e.startTime).Seconds(); elapsed > 0 {
			snap.RoundsPerSecond = float64(st.Bets) / elapsed
		}
	}
	return snap
}

func (e *Engine) run(ctx context.Context, maxRounds int) {
	defer close(e.done)

	err := e.loop(ctx, maxRounds)

	e.mu.Lock()
	if err != nil && ctx.Err() == nil {
		e.state = StateError
		e.err = err
	} else {
		e.state = StateStopped
	}
	e.cancel = nil
	final := e.snapshotLocked()
	e.mu.Unlock()

	if e.emitter != nil {
		e.emitter.EmitScriptState(final)
		e.emitter.EmitScriptLog(e.vm.Logs())
	}
}

func (e *Engine) loop(ctx context.Context, maxRounds int) error {
	for played := 0; maxRounds <= 0 || played < maxRounds; played++ {
		if ctx.Err() != nil || e.vm.StopRequested() {
			return nil
		}

		syncToVM(e.vm.runtime, e.vars)
		if err := e.vm.CallDoBet(); err != nil {
			return err
		}
		if e.vm.StopRequested() {
			return nil
		}
		if err := syncFromVM(e.vm.runtime, e.vars); err != nil {
			return err
		}

		if err := e.playRound(); err != nil {
			return err
		}

		if e.emitter != nil {
			e.mu.RLock()
			snap := e.snapshotLocked()
			e.mu.RUnlock()
			e.emitter.EmitScriptState(snap)
		}

		if ms := e.vm.TakeSleep(); ms > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Duration(ms) * time.Millisecond):
			}
		}
	}
	return nil
}

// playRound runs one full round from the script's instructions.
func (e *Engine) playRound() error {
	vars := e.vars

	if vars.NextBet <= 0 {
		return fmt.Errorf("nextbet must be positive, got %v", vars.NextBet)
	}
	if vars.NextBet > vars.Balance {
		return fmt.Errorf("nextbet %v exceeds balance %v", vars.NextBet, vars.Balance)
	}

	// Always start from a clean round; NewRound carries balance, stake,
	// and hazard count regardless of how the previous round ended.
	v := e.driver.NewRound()

	if err := validatePicks(vars.Picks, len(v.Cells)); err != nil {
		return err
	}

	e.driver.SetStake(vars.NextBet)
	e.driver.SetHazardCount(vars.Mines)
	v = e.driver.LockIn()
	if !v.IsLockedIn {
		return fmt.Errorf("lock-in rejected: stake %v exceeds balance", vars.NextBet)
	}

	balanceBefore := v.Balance

	busted := false
	for _, pick := range vars.Picks {
		v = e.driver.Reveal(pick)
		if v.GameOver {
			busted = true
			break
		}
	}
	if !busted {
		v = e.driver.CashOut()
	}

	balance := v.Balance.InexactFloat64()
	profit := v.Balance.Sub(balanceBefore).InexactFloat64()

	e.mu.Lock()
	e.stats.record(vars.NextBet, profit, balance, !busted)
	e.mu.Unlock()

	vars.Balance = balance
	vars.PreviousBet = vars.NextBet
	vars.Win = !busted
	return nil
}

func validatePicks(picks []int, cellCount int) error {
	if len(picks) == 0 {
		return fmt.Errorf("script must set picks to at least one tile index")
	}
	seen := make(map[int]bool, len(picks))
	for _, p := range picks {
		if p < 0 || p >= cellCount {
			return fmt.Errorf("pick %d out of range [0, %d)", p, cellCount)
		}
		if seen[p] {
			return fmt.Errorf("duplicate pick %d", p)
		}
		seen[p] = true
	}
	return nil
}
