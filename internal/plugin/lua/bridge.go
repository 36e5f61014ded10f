package lua

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/posmap/internal/engine/mapping"
)

// maxExactInt is the largest integer a Lua number holds exactly.
const maxExactInt = 1 << 53

// checkInt64 returns argument n as an integer, raising an argument error
// for fractional or out-of-range numbers.
func checkInt64(L *lua.LState, n int) int64 {
	v := float64(L.CheckNumber(n))
	if v != math.Trunc(v) || v > maxExactInt || v < -maxExactInt {
		L.ArgError(n, "integer expected")
		return 0
	}
	return int64(v)
}

// checkIndex returns argument n as a non-negative integer below limit.
func checkIndex(L *lua.LState, n int, limit int) int {
	v := checkInt64(L, n)
	if v < 0 || v >= int64(limit) {
		L.ArgError(n, "index out of range")
		return 0
	}
	return int(v)
}

// optAssoc reads an optional association argument. Negative numbers and
// "before" select AssocBefore; anything else selects AssocAfter.
func optAssoc(L *lua.LState, n int) mapping.Assoc {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		if v < 0 {
			return mapping.AssocBefore
		}
	case lua.LString:
		if v == "before" {
			return mapping.AssocBefore
		}
	}
	return mapping.AssocAfter
}

// checkRanges reads (start, oldSize, newSize) triples either from a table
// at argument n or from the arguments n..top.
func checkRanges(L *lua.LState, n int) []int64 {
	if tbl, ok := L.Get(n).(*lua.LTable); ok {
		count := tbl.Len()
		ranges := make([]int64, 0, count)
		for i := 1; i <= count; i++ {
			num, ok := tbl.RawGetInt(i).(lua.LNumber)
			if !ok || float64(num) != math.Trunc(float64(num)) {
				L.ArgError(n, "table of integers expected")
				return nil
			}
			ranges = append(ranges, int64(num))
		}
		return ranges
	}

	top := L.GetTop()
	ranges := make([]int64, 0, max(top-n+1, 0))
	for i := n; i <= top; i++ {
		ranges = append(ranges, checkInt64(L, i))
	}
	return ranges
}

// int64sToTable converts a slice to a Lua array.
func int64sToTable(L *lua.LState, vals []int64) *lua.LTable {
	tbl := L.CreateTable(len(vals), 0)
	for i, v := range vals {
		tbl.RawSetInt(i+1, lua.LNumber(v))
	}
	return tbl
}

// checkToken reads a packed recovery token.
func checkToken(L *lua.LState, n int) mapping.Recovery {
	v := checkInt64(L, n)
	if v < 0 {
		L.ArgError(n, "recovery token must not be negative")
		return mapping.Recovery{}
	}
	return mapping.RecoveryFromToken(uint64(v))
}

// tokenValue packs a recovery for Lua.
func tokenValue(r mapping.Recovery) lua.LValue {
	return lua.LNumber(float64(r.Token()))
}
