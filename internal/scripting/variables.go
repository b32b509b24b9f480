package scripting

import (
	"fmt"

	"github.com/dop251/goja"
)

// Variables holds the bot-style globals mirrored into the VM before each
// dobet() call and read back afterwards.
type Variables struct {
	// Read-only for the script (overwritten before every call).
	Balance     float64
	PreviousBet float64
	Win         bool
	Stats       *Statistics

	// Writable: the script's instructions for the next round.
	NextBet float64
	Mines   int
	Picks   []int
}

// syncToVM pushes the current variable state into the runtime. Read-only
// semantics are enforced by overwriting before each call rather than at the
// JS property level.
func syncToVM(vm *goja.Runtime, vars *Variables) {
	vm.Set("balance", vars.Balance)
	vm.Set("nextbet", vars.NextBet)
	vm.Set("previousbet", vars.PreviousBet)
	vm.Set("win", vars.Win)
	vm.Set("mines", vars.Mines)
	vm.Set("picks", vars.Picks)

	vm.Set("bets", vars.Stats.Bets)
	vm.Set("wins", vars.Stats.Wins)
	vm.Set("losses", vars.Stats.Losses)
	vm.Set("currentstreak", vars.Stats.CurrentStreak)
	vm.Set("profit", vars.Stats.Profit)
	vm.Set("wagered", vars.Stats.Wagered)
}

// syncFromVM reads back the writable globals after dobet() returns.
func syncFromVM(vm *goja.Runtime, vars *Variables) error {
	vars.NextBet = vm.Get("nextbet").ToFloat()

	mines := vm.Get("mines").ToInteger()
	vars.Mines = int(mines)

	picksVal := vm.Get("picks")
	if picksVal == nil || goja.IsUndefined(picksVal) || goja.IsNull(picksVal) {
		vars.Picks = nil
		return nil
	}

	var raw []int
	if err := vm.ExportTo(picksVal, &raw); err != nil {
		return fmt.Errorf("picks must be an array of tile indexes: %w", err)
	}
	vars.Picks = raw
	return nil
}
