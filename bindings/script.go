package bindings

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/MJE43/mines-desktop-go/internal/scripting"
	"github.com/MJE43/mines-desktop-go/internal/table"
)

// Frontend event names for script sessions.
const (
	eventScriptState = "script:state"
	eventScriptLog   = "script:log"
)

// ScriptModule exposes the autobet engine to the frontend.
type ScriptModule struct {
	ctx    context.Context
	engine *scripting.Engine
}

// NewScriptModule creates a script module playing against the given table.
func NewScriptModule(tbl *table.Module) *ScriptModule {
	m := &ScriptModule{}
	m.engine = scripting.NewEngine(tbl, m)
	return m
}

// Startup is called by Wails on application startup.
func (m *ScriptModule) Startup(ctx context.Context) {
	m.ctx = ctx
}

// Shutdown stops any running session and waits for it to finish.
func (m *ScriptModule) Shutdown() {
	m.engine.Stop()
	m.engine.Wait()
}

// StartScript begins an autobet session. maxRounds <= 0 removes the limit.
func (m *ScriptModule) StartScript(source string, maxRounds int) error {
	return m.engine.Start(source, maxRounds)
}

// StopScript cancels the running session.
func (m *ScriptModule) StopScript() {
	m.engine.Stop()
}

// GetStatus returns the engine snapshot.
func (m *ScriptModule) GetStatus() scripting.EngineSnapshot {
	return m.engine.Status()
}

// GetLogs returns the script's log buffer.
func (m *ScriptModule) GetLogs() []scripting.LogEntry {
	return m.engine.Logs()
}

// EmitScriptState implements scripting.EventEmitter.
func (m *ScriptModule) EmitScriptState(snap scripting.EngineSnapshot) {
	if m.ctx != nil {
		runtime.EventsEmit(m.ctx, eventScriptState, snap)
	}
}

// EmitScriptLog implements scripting.EventEmitter.
func (m *ScriptModule) EmitScriptLog(entries []scripting.LogEntry) {
	if m.ctx != nil {
		runtime.EventsEmit(m.ctx, eventScriptLog, entries)
	}
}
