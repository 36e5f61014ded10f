package lua

import (
	"io"
	"strings"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// ModuleName is the name of the posmap module in Lua.
const ModuleName = "posmap"

// Sandbox restricts Lua execution to safe operations.
type Sandbox struct {
	L *lua.LState

	// Instruction limiting
	instructionLimit int64
	instructionCount int64

	out io.Writer
}

// NewSandbox creates a new sandbox for the Lua state. print writes to out.
func NewSandbox(L *lua.LState, instructionLimit int64, out io.Writer) *Sandbox {
	if out == nil {
		out = io.Discard
	}
	return &Sandbox{
		L:                L,
		instructionLimit: instructionLimit,
		out:              out,
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	dangerousFuncs := []string{
		"dofile",
		"loadfile",
		"load",
		"loadstring",
	}
	for _, name := range dangerousFuncs {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installPrint()
	s.installSafeRequire()
}

// installPrint replaces print with a version writing to the sandbox output.
func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		_, _ = io.WriteString(s.out, strings.Join(parts, "\t")+"\n")
		return 0
	}))
}

// installSafeRequire replaces require with one that only resolves the safe
// standard libraries and modules registered with PreloadModule.
func (s *Sandbox) installSafeRequire() {
	safeModules := map[string]bool{
		"string":   true,
		"table":    true,
		"math":     true,
		ModuleName: true,
	}

	// Search paths are cleared so nothing is loaded from disk.
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	originalRequire := s.L.GetGlobal("require")
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !safeModules[modName] {
			L.RaiseError("module %q is not available", modName)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}

// ResetInstructionCount resets the instruction counter.
func (s *Sandbox) ResetInstructionCount() {
	atomic.StoreInt64(&s.instructionCount, 0)
}

// InstructionCount returns the current instruction count.
func (s *Sandbox) InstructionCount() int64 {
	return atomic.LoadInt64(&s.instructionCount)
}

// IncrementInstructions adds to the instruction count and returns true if limit exceeded.
func (s *Sandbox) IncrementInstructions(n int64) bool {
	if s.instructionLimit <= 0 {
		return false
	}
	count := atomic.AddInt64(&s.instructionCount, n)
	return count > s.instructionLimit
}

// Exceeded reports whether the current execution ran past the limit.
func (s *Sandbox) Exceeded() bool {
	return s.instructionLimit > 0 && s.InstructionCount() > s.instructionLimit
}

// step charges one instruction and raises a Lua error past the limit.
func (s *Sandbox) step(L *lua.LState) {
	if s.IncrementInstructions(1) {
		L.RaiseError("%s", ErrInstructionLimit.Error())
	}
}
