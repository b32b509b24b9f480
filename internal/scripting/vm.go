// Package scripting runs player-written autobet scripts against the table.
// Scripts are plain JavaScript: they define dobet(), read the mirrored table
// state, and steer the next round through the nextbet / mines / picks
// globals.
package scripting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// LogEntry is a single log message emitted by the script.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 1 * time.Second
)

// VM wraps a goja runtime with sandbox restrictions and the injected
// host functions.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	// stopRequested is set when the script calls stop().
	stopRequested bool

	// sleepMs is set when the script calls sleep(ms).
	sleepMs int
}

// NewVM creates a sandboxed runtime with host functions injected.
func NewVM() *VM {
	vm := &VM{
		runtime: goja.New(),
		maxLogs: 500,
	}
	vm.injectHostFunctions()
	return vm
}

// injectHostFunctions registers log, console.log, stop, and sleep, and
// blocks runtime escapes.
func (vm *VM) injectHostFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		vm.appendLog(strings.Join(parts, " "))
		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	vm.runtime.Set("stop", func(call goja.FunctionCall) goja.Value {
		vm.mu.Lock()
		vm.stopRequested = true
		vm.mu.Unlock()
		return goja.Undefined()
	})

	vm.runtime.Set("sleep", func(call goja.FunctionCall) goja.Value {
		ms := 0
		if len(call.Arguments) > 0 {
			ms = int(call.Arguments[0].ToInteger())
		}
		vm.mu.Lock()
		vm.sleepMs = ms
		vm.mu.Unlock()
		return goja.Undefined()
	})

	// Block dangerous globals. Math is available in goja by default.
	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

func (vm *VM) appendLog(msg string) {
	vm.logsMu.Lock()
	if len(vm.logs) >= vm.maxLogs {
		vm.logs = vm.logs[1:]
	}
	vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: msg})
	vm.logsMu.Unlock()
}

// Logs returns a copy of the log buffer.
func (vm *VM) Logs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	return append([]LogEntry(nil), vm.logs...)
}

// StopRequested reports whether the script has called stop().
func (vm *VM) StopRequested() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stopRequested
}

// TakeSleep returns and clears the pending sleep request in milliseconds.
func (vm *VM) TakeSleep() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	ms := vm.sleepMs
	vm.sleepMs = 0
	return ms
}

// Execute runs the script source once, registering dobet(). Runaway
// top-level code is interrupted after scriptInitTimeout.
func (vm *VM) Execute(source string) error {
	timer := time.AfterFunc(scriptInitTimeout, func() {
		vm.runtime.Interrupt("script initialization timed out")
	})
	defer timer.Stop()

	_, err := vm.runtime.RunString(source)
	timer.Stop()
	vm.runtime.ClearInterrupt()
	if err != nil {
		return fmt.Errorf("script execution failed: %w", err)
	}

	fn := vm.runtime.Get("dobet")
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return fmt.Errorf("script must define dobet()")
	}
	if _, ok := goja.AssertFunction(fn); !ok {
		return fmt.Errorf("dobet must be a function")
	}
	return nil
}

// CallDoBet invokes the script's dobet() with a per-call interrupt timeout.
func (vm *VM) CallDoBet() error {
	fn, ok := goja.AssertFunction(vm.runtime.Get("dobet"))
	if !ok {
		return fmt.Errorf("dobet is not callable")
	}

	timer := time.AfterFunc(scriptCallTimeout, func() {
		vm.runtime.Interrupt("dobet() timed out")
	})
	defer timer.Stop()

	_, err := fn(goja.Undefined())
	timer.Stop()
	vm.runtime.ClearInterrupt()
	if err != nil {
		return fmt.Errorf("dobet() failed: %w", err)
	}
	return nil
}
