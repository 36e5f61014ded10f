// Package lua runs sandboxed Lua scripts against the position mapping
// engine.
//
// Scripts see a global posmap table (also available through
// require("posmap")) with constructors for range maps and mappings:
//
//	local cut = posmap.range_map{2, 4, 0}
//	local m = posmap.mapping()
//	m:append_map(cut)
//	m:append_map(cut:invert(), 0)    -- mirror of map 0
//	local pos, deleted = m:map_result(4)
//	posmap.expect("restored", pos, 4)
//
// Mapping indexes are zero-based, matching session versions. Recovery
// tokens cross into Lua as plain numbers packed as index + offset*65536;
// posmap.token and posmap.recovery convert between the two forms. The
// association argument of map and map_result accepts posmap.BEFORE,
// posmap.AFTER, a signed number or "before".
//
// # State
//
//	state, err := lua.NewState(
//	    lua.WithExecutionTimeout(2 * time.Second),
//	    lua.WithInstructionLimit(100000),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer state.Close()
//
//	if err := state.DoFile(ctx, "check.lua"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Sandbox
//
// The Sandbox restricts Lua code execution by:
//   - Opening only the base, table, string and math libraries
//   - Removing dofile, loadfile, load and loadstring
//   - Limiting require to those libraries and the posmap module
//   - Counting posmap calls against the instruction limit
//
// The execution timeout is enforced through the state's context, so it
// also stops scripts that loop without calling into posmap.
package lua
