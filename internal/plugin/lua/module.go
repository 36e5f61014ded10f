package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/posmap/internal/engine/mapping"
)

// Metatable names of the userdata types exposed to Lua.
const (
	rangeMapTypeName = "posmap.RangeMap"
	mappingTypeName  = "posmap.Mapping"
)

// Check is the outcome of one posmap.expect call.
type Check struct {
	Name   string
	Got    string
	Want   string
	Passed bool
}

// String formats the check as a single report line.
func (c Check) String() string {
	if c.Passed {
		return fmt.Sprintf("%s: %s ok", c.Name, c.Got)
	}
	return fmt.Sprintf("%s: %s FAIL (want %s)", c.Name, c.Got, c.Want)
}

// Module implements the posmap Lua module.
type Module struct {
	sandbox *Sandbox
	checks  []Check
}

// NewModule creates the posmap module. Every call is charged to the
// sandbox's instruction count.
func NewModule(sandbox *Sandbox) *Module {
	return &Module{sandbox: sandbox}
}

// Name returns the module name.
func (m *Module) Name() string {
	return ModuleName
}

// Register installs the userdata metatables, the posmap global and the
// require("posmap") loader.
func (m *Module) Register(L *lua.LState) error {
	m.registerType(L, rangeMapTypeName, map[string]lua.LGFunction{
		"map":        m.rmMap,
		"map_result": m.rmMapResult,
		"recover":    m.rmRecover,
		"touches":    m.rmTouches,
		"for_each":   m.rmForEach,
		"invert":     m.rmInvert,
		"inverted":   m.rmInverted,
		"len":        m.rmLen,
		"delta":      m.rmDelta,
		"ranges":     m.rmRanges,
		"is_empty":   m.rmIsEmpty,
	}, m.rmLen)

	m.registerType(L, mappingTypeName, map[string]lua.LGFunction{
		"map":                     m.mMap,
		"map_result":              m.mMapResult,
		"append_map":              m.mAppendMap,
		"append_mapping":          m.mAppendMapping,
		"append_mapping_inverted": m.mAppendMappingInverted,
		"invert":                  m.mInvert,
		"slice":                   m.mSlice,
		"copy":                    m.mCopy,
		"get_mirror":              m.mGetMirror,
		"set_mirror":              m.mSetMirror,
		"mirrors":                 m.mMirrors,
		"maps":                    m.mMaps,
		"len":                     m.mLen,
		"from":                    m.mFrom,
		"to":                      m.mTo,
	}, m.mLen)

	mod := m.newModuleTable(L)
	L.SetGlobal(ModuleName, mod)
	L.PreloadModule(ModuleName, func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})
	return nil
}

func (m *Module) newModuleTable(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	L.SetField(mod, "range_map", L.NewFunction(m.rangeMap))
	L.SetField(mod, "offset", L.NewFunction(m.offset))
	L.SetField(mod, "empty", L.NewFunction(m.empty))
	L.SetField(mod, "mapping", L.NewFunction(m.newMapping))
	L.SetField(mod, "token", L.NewFunction(m.token))
	L.SetField(mod, "recovery", L.NewFunction(m.recovery))
	L.SetField(mod, "expect", L.NewFunction(m.expect))
	L.SetField(mod, "BEFORE", lua.LNumber(mapping.AssocBefore))
	L.SetField(mod, "AFTER", lua.LNumber(mapping.AssocAfter))
	return mod
}

func (m *Module) registerType(L *lua.LState, name string, methods map[string]lua.LGFunction, length lua.LGFunction) {
	mt := L.NewTypeMetatable(name)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), methods))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(fmt.Sprint(L.CheckUserData(1).Value)))
		return 1
	}))
	L.SetField(mt, "__len", L.NewFunction(length))
}

func (m *Module) takeChecks() []Check {
	checks := m.checks
	m.checks = nil
	return checks
}

func pushRangeMap(L *lua.LState, rm *mapping.RangeMap) {
	ud := L.NewUserData()
	ud.Value = rm
	L.SetMetatable(ud, L.GetTypeMetatable(rangeMapTypeName))
	L.Push(ud)
}

func pushMapping(L *lua.LState, mp *mapping.Mapping) {
	ud := L.NewUserData()
	ud.Value = mp
	L.SetMetatable(ud, L.GetTypeMetatable(mappingTypeName))
	L.Push(ud)
}

func checkRangeMap(L *lua.LState, n int) *mapping.RangeMap {
	if rm, ok := L.CheckUserData(n).Value.(*mapping.RangeMap); ok {
		return rm
	}
	L.ArgError(n, "range map expected")
	return nil
}

func checkMapping(L *lua.LState, n int) *mapping.Mapping {
	if mp, ok := L.CheckUserData(n).Value.(*mapping.Mapping); ok {
		return mp
	}
	L.ArgError(n, "mapping expected")
	return nil
}

// range_map{start, oldSize, newSize, ...} or range_map(start, oldSize, newSize, ...)
func (m *Module) rangeMap(L *lua.LState) int {
	m.sandbox.step(L)
	rm, err := mapping.FromRanges(checkRanges(L, 1))
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	pushRangeMap(L, rm)
	return 1
}

// offset(n) -> range map shifting every position by n
func (m *Module) offset(L *lua.LState) int {
	m.sandbox.step(L)
	pushRangeMap(L, mapping.Offset(checkInt64(L, 1)))
	return 1
}

// empty() -> identity range map
func (m *Module) empty(L *lua.LState) int {
	m.sandbox.step(L)
	pushRangeMap(L, mapping.Empty())
	return 1
}

// mapping(rm, ...) -> mapping over the given range maps
func (m *Module) newMapping(L *lua.LState) int {
	m.sandbox.step(L)
	top := L.GetTop()
	maps := make([]*mapping.RangeMap, 0, top)
	for i := 1; i <= top; i++ {
		maps = append(maps, checkRangeMap(L, i))
	}
	pushMapping(L, mapping.New(maps...))
	return 1
}

// token(index, offset) -> packed recovery token
func (m *Module) token(L *lua.LState) int {
	m.sandbox.step(L)
	index := checkInt64(L, 1)
	offset := checkInt64(L, 2)
	if index < 0 || index >= 65536 {
		L.ArgError(1, "index out of range")
		return 0
	}
	if offset < 0 {
		L.ArgError(2, "offset must not be negative")
		return 0
	}
	L.Push(tokenValue(mapping.Recovery{Index: int(index), Offset: offset}))
	return 1
}

// recovery(token) -> index, offset
func (m *Module) recovery(L *lua.LState) int {
	m.sandbox.step(L)
	r := checkToken(L, 1)
	L.Push(lua.LNumber(r.Index))
	L.Push(lua.LNumber(r.Offset))
	return 2
}

// expect(name, got, want) -> passed
// Records a named check reported by the host after the script runs.
func (m *Module) expect(L *lua.LState) int {
	m.sandbox.step(L)
	name := L.CheckString(1)
	got, want := L.Get(2), L.Get(3)
	passed := L.Equal(got, want)
	m.checks = append(m.checks, Check{
		Name:   name,
		Got:    L.ToStringMeta(got).String(),
		Want:   L.ToStringMeta(want).String(),
		Passed: passed,
	})
	L.Push(lua.LBool(passed))
	return 1
}

// rm:map(pos [, assoc]) -> pos
func (m *Module) rmMap(L *lua.LState) int {
	m.sandbox.step(L)
	rm := checkRangeMap(L, 1)
	L.Push(lua.LNumber(rm.Map(checkInt64(L, 2), optAssoc(L, 3))))
	return 1
}

// rm:map_result(pos [, assoc]) -> pos, deleted, token|nil
func (m *Module) rmMapResult(L *lua.LState) int {
	m.sandbox.step(L)
	rm := checkRangeMap(L, 1)
	res := rm.MapResult(checkInt64(L, 2), optAssoc(L, 3))
	L.Push(lua.LNumber(res.Pos))
	L.Push(lua.LBool(res.Deleted))
	if res.Recover != nil {
		L.Push(tokenValue(*res.Recover))
	} else {
		L.Push(lua.LNil)
	}
	return 3
}

// rm:recover(token) -> pos
func (m *Module) rmRecover(L *lua.LState) int {
	m.sandbox.step(L)
	rm := checkRangeMap(L, 1)
	r := checkToken(L, 2)
	if r.Index >= rm.Len() {
		L.ArgError(2, "token does not refer to a span of this map")
		return 0
	}
	L.Push(lua.LNumber(rm.Recover(r)))
	return 1
}

// rm:touches(pos, token) -> bool
func (m *Module) rmTouches(L *lua.LState) int {
	m.sandbox.step(L)
	rm := checkRangeMap(L, 1)
	L.Push(lua.LBool(rm.Touches(checkInt64(L, 2), checkToken(L, 3))))
	return 1
}

// rm:for_each(fn(oldStart, oldEnd, newStart, newEnd))
func (m *Module) rmForEach(L *lua.LState) int {
	m.sandbox.step(L)
	rm := checkRangeMap(L, 1)
	fn := L.CheckFunction(2)

	var callErr error
	rm.ForEach(func(oldStart, oldEnd, newStart, newEnd int64) {
		if callErr != nil {
			return
		}
		callErr = L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true},
			lua.LNumber(oldStart), lua.LNumber(oldEnd), lua.LNumber(newStart), lua.LNumber(newEnd))
	})
	if callErr != nil {
		L.RaiseError("%s", callErr.Error())
	}
	return 0
}

// rm:invert() -> range map
func (m *Module) rmInvert(L *lua.LState) int {
	m.sandbox.step(L)
	pushRangeMap(L, checkRangeMap(L, 1).Invert())
	return 1
}

// rm:inverted() -> bool
func (m *Module) rmInverted(L *lua.LState) int {
	m.sandbox.step(L)
	L.Push(lua.LBool(checkRangeMap(L, 1).Inverted()))
	return 1
}

// rm:len() -> number of spans
func (m *Module) rmLen(L *lua.LState) int {
	m.sandbox.step(L)
	L.Push(lua.LNumber(checkRangeMap(L, 1).Len()))
	return 1
}

// rm:delta() -> total size change
func (m *Module) rmDelta(L *lua.LState) int {
	m.sandbox.step(L)
	L.Push(lua.LNumber(checkRangeMap(L, 1).Delta()))
	return 1
}

// rm:ranges() -> {start, oldSize, newSize, ...}
func (m *Module) rmRanges(L *lua.LState) int {
	m.sandbox.step(L)
	L.Push(int64sToTable(L, checkRangeMap(L, 1).Ranges()))
	return 1
}

// rm:is_empty() -> bool
func (m *Module) rmIsEmpty(L *lua.LState) int {
	m.sandbox.step(L)
	L.Push(lua.LBool(checkRangeMap(L, 1).IsEmpty()))
	return 1
}

// m:map(pos [, assoc]) -> pos
func (m *Module) mMap(L *lua.LState) int {
	m.sandbox.step(L)
	mp := checkMapping(L, 1)
	L.Push(lua.LNumber(mp.Map(checkInt64(L, 2), optAssoc(L, 3))))
	return 1
}

// m:map_result(pos [, assoc]) -> pos, deleted
func (m *Module) mMapResult(L *lua.LState) int {
	m.sandbox.step(L)
	mp := checkMapping(L, 1)
	res := mp.MapResult(checkInt64(L, 2), optAssoc(L, 3))
	L.Push(lua.LNumber(res.Pos))
	L.Push(lua.LBool(res.Deleted))
	return 2
}

// m:append_map(rm [, mirror_of]) -> index
func (m *Module) mAppendMap(L *lua.LState) int {
	m.sandbox.step(L)
	mp := checkMapping(L, 1)
	rm := checkRangeMap(L, 2)
	if L.Get(3) == lua.LNil {
		mp.AppendMap(rm)
	} else {
		mp.AppendMapMirror(rm, checkIndex(L, 3, mp.Len()))
	}
	L.Push(lua.LNumber(mp.Len() - 1))
	return 1
}

// m:append_mapping(other)
func (m *Module) mAppendMapping(L *lua.LState) int {
	m.sandbox.step(L)
	mp := checkMapping(L, 1)
	mp.AppendMapping(checkMapping(L, 2))
	return 0
}

// m:append_mapping_inverted(other)
func (m *Module) mAppendMappingInverted(L *lua.LState) int {
	m.sandbox.step(L)
	mp := checkMapping(L, 1)
	mp.AppendMappingInverted(checkMapping(L, 2))
	return 0
}

// m:invert() -> mapping
func (m *Module) mInvert(L *lua.LState) int {
	m.sandbox.step(L)
	pushMapping(L, checkMapping(L, 1).Invert())
	return 1
}

// m:slice(from [, to]) -> mapping view
func (m *Module) mSlice(L *lua.LState) int {
	m.sandbox.step(L)
	mp := checkMapping(L, 1)
	from := int(checkInt64(L, 2))
	to := mp.Len()
	if L.Get(3) != lua.LNil {
		to = int(checkInt64(L, 3))
	}
	pushMapping(L, mp.Slice(from, to))
	return 1
}

// m:copy() -> mapping
func (m *Module) mCopy(L *lua.LState) int {
	m.sandbox.step(L)
	pushMapping(L, checkMapping(L, 1).Copy())
	return 1
}

// m:get_mirror(i) -> j | nil
func (m *Module) mGetMirror(L *lua.LState) int {
	m.sandbox.step(L)
	mp := checkMapping(L, 1)
	if j, ok := mp.GetMirror(int(checkInt64(L, 2))); ok {
		L.Push(lua.LNumber(j))
	} else {
		L.Push(lua.LNil)
	}
	return 1
}

// m:set_mirror(i, j)
func (m *Module) mSetMirror(L *lua.LState) int {
	m.sandbox.step(L)
	mp := checkMapping(L, 1)
	i := checkIndex(L, 2, mp.Len())
	j := checkIndex(L, 3, mp.Len())
	mp.SetMirror(i, j)
	return 0
}

// m:mirrors() -> {{i, j}, ...}
func (m *Module) mMirrors(L *lua.LState) int {
	m.sandbox.step(L)
	pairs := checkMapping(L, 1).Mirrors()
	tbl := L.CreateTable(len(pairs), 0)
	for k, p := range pairs {
		tbl.RawSetInt(k+1, int64sToTable(L, []int64{int64(p[0]), int64(p[1])}))
	}
	L.Push(tbl)
	return 1
}

// m:maps() -> {rm, ...}
func (m *Module) mMaps(L *lua.LState) int {
	m.sandbox.step(L)
	maps := checkMapping(L, 1).Maps()
	tbl := L.CreateTable(len(maps), 0)
	for k, rm := range maps {
		pushRangeMap(L, rm)
		tbl.RawSetInt(k+1, L.Get(-1))
		L.Pop(1)
	}
	L.Push(tbl)
	return 1
}

// m:len() -> number of maps
func (m *Module) mLen(L *lua.LState) int {
	m.sandbox.step(L)
	L.Push(lua.LNumber(checkMapping(L, 1).Len()))
	return 1
}

// m:from() -> window start
func (m *Module) mFrom(L *lua.LState) int {
	m.sandbox.step(L)
	L.Push(lua.LNumber(checkMapping(L, 1).From()))
	return 1
}

// m:to() -> window end
func (m *Module) mTo(L *lua.LState) int {
	m.sandbox.step(L)
	L.Push(lua.LNumber(checkMapping(L, 1).To()))
	return 1
}
