// Package bindings exposes the game modules to the Wails frontend. Each
// module is a thin wrapper over its internal package; no game logic lives
// here.
package bindings

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/MJE43/mines-desktop-go/internal/round"
	"github.com/MJE43/mines-desktop-go/internal/table"
)

// GameModule is the frontend's handle on the mines table.
type GameModule struct {
	ctx   context.Context
	table *table.Module
}

// NewGameModule wraps a table module for binding.
func NewGameModule(tbl *table.Module) *GameModule {
	return &GameModule{table: tbl}
}

// Startup is called by Wails on application startup. From this point the
// table's advisory signals flow to the frontend as runtime events.
func (g *GameModule) Startup(ctx context.Context) {
	g.ctx = ctx
	g.table.SetEmitter(func(event string, payload any) {
		runtime.EventsEmit(ctx, event, payload)
	})
}

// GetState returns the current (redacted) table view.
func (g *GameModule) GetState() table.View {
	return g.table.View()
}

// GetConfig returns the grid parameters for rendering.
func (g *GameModule) GetConfig() round.Config {
	return g.table.Config()
}

// Deposit credits the balance.
func (g *GameModule) Deposit(amount float64) table.View {
	return g.table.Deposit(amount)
}

// SetStake edits the stake for the current round.
func (g *GameModule) SetStake(stake float64) table.View {
	return g.table.SetStake(stake)
}

// SetHazardCount edits the hazard density for the current round.
func (g *GameModule) SetHazardCount(n int) table.View {
	return g.table.SetHazardCount(n)
}

// NewRound abandons the current round and starts fresh.
func (g *GameModule) NewRound() table.View {
	return g.table.NewRound()
}

// LockIn commits the stake.
func (g *GameModule) LockIn() table.View {
	return g.table.LockIn()
}

// Reveal uncovers a cell.
func (g *GameModule) Reveal(index int) table.View {
	return g.table.Reveal(index)
}

// CashOut banks the payout and starts the next round.
func (g *GameModule) CashOut() table.View {
	return g.table.CashOut()
}

// VerifyRound re-derives a finished round's grid from its disclosed seeds.
func (g *GameModule) VerifyRound(roundID string) (table.VerifyResult, error) {
	return g.table.VerifyRound(roundID)
}
