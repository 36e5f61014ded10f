package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Default limits for Lua state.
const (
	DefaultExecutionTimeout = 5 * time.Second // Timeout for a single execution
	DefaultInstructionLimit = 10_000_000      // Maximum posmap calls per execution
)

// State wraps gopher-lua with the sandbox and the posmap module.
//
// gopher-lua's LState is not goroutine-safe. Every method takes the state's
// mutex, so a State may be shared, but executions are serialized.
type State struct {
	L *lua.LState

	mu sync.Mutex

	// Configuration
	executionTimeout time.Duration
	instructionLimit int64
	output           io.Writer

	sandbox *Sandbox
	module  *Module

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the execution timeout. Zero disables it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithInstructionLimit sets the maximum posmap calls per execution. Zero
// disables the limit.
func WithInstructionLimit(limit int64) StateOption {
	return func(s *State) {
		s.instructionLimit = limit
	}
}

// WithOutput sets where print writes. Output is discarded by default.
func WithOutput(w io.Writer) StateOption {
	return func(s *State) {
		s.output = w
	}
}

// NewState creates a new sandboxed Lua state with the posmap module loaded.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
		instructionLimit: DefaultInstructionLimit,
	}

	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	state.L = L

	openSafeLibraries(L)

	state.sandbox = NewSandbox(L, state.instructionLimit, state.output)
	state.sandbox.Install()

	state.module = NewModule(state.sandbox)
	if err := state.module.Register(L); err != nil {
		L.Close()
		return nil, err
	}

	return state, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
func openSafeLibraries(L *lua.LState) {
	lua.OpenPackage(L)
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	// io, os, debug and channel are not opened.
}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a Lua string.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func() error {
		return s.L.DoString(code)
	})
}

// Call calls a global Lua function with the given arguments.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) Call(ctx context.Context, fn string, args ...lua.LValue) ([]lua.LValue, error) {
	var results []lua.LValue
	err := s.run(ctx, func() error {
		fnVal := s.L.GetGlobal(fn)
		if fnVal.Type() != lua.LTFunction {
			return fmt.Errorf("%w: %q (got %s)", ErrFunctionNotFound, fn, fnVal.Type())
		}

		stackTop := s.L.GetTop()
		s.L.Push(fnVal)
		for _, arg := range args {
			s.L.Push(arg)
		}
		if err := s.L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}

		nRet := s.L.GetTop() - stackTop
		results = make([]lua.LValue, 0, nRet)
		for i := 0; i < nRet; i++ {
			results = append(results, s.L.Get(stackTop+i+1))
		}
		s.L.Pop(nRet)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// run executes fn under the lock with the timeout context installed and
// maps limit violations to package errors.
func (s *State) run(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var cancel context.CancelFunc
	if s.executionTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	s.sandbox.ResetInstructionCount()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	err := s.doWithRecovery(fn)
	if err == nil {
		return nil
	}

	switch {
	case s.sandbox.Exceeded():
		return fmt.Errorf("%w: %v", ErrInstructionLimit, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return err
}

// doWithRecovery executes a function with panic recovery.
func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}

	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.L.SetGlobal(name, value)
}

// Checks returns the results of posmap.expect calls made so far and clears
// them.
func (s *State) Checks() []Check {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.module.takeChecks()
}

// InstructionCount returns the posmap calls charged to the last execution.
func (s *State) InstructionCount() int64 {
	return s.sandbox.InstructionCount()
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
// After Close is called, all other methods will return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.L.Close()
	s.closed = true
	return nil
}

// Reset clears user-defined globals and pending checks so the state can
// run another script.
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	globals := s.L.Get(lua.GlobalsIndex).(*lua.LTable)
	safeGlobals := map[string]bool{
		"_G": true, "_VERSION": true,
		"assert": true, "error": true, "getmetatable": true,
		"ipairs": true, "next": true, "pairs": true, "pcall": true,
		"print": true, "rawequal": true, "rawget": true, "rawlen": true,
		"rawset": true, "select": true, "setmetatable": true,
		"tonumber": true, "tostring": true, "type": true, "xpcall": true,
		"unpack": true, "require": true, "package": true, "module": true,
		"math": true, "string": true, "table": true, ModuleName: true,
	}

	var keysToRemove []string
	globals.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok && !safeGlobals[string(ks)] {
			keysToRemove = append(keysToRemove, string(ks))
		}
	})
	for _, k := range keysToRemove {
		s.L.SetGlobal(k, lua.LNil)
	}

	s.module.takeChecks()
	s.sandbox.ResetInstructionCount()
	return nil
}
