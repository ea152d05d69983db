// Package luabridge embeds a Lua interpreter and bridges values,
// collections and callables across the host/interpreter boundary while each
// side keeps its own memory management.
//
// # Architecture Overview
//
// The library is organized into a small set of parts with distinct
// responsibilities:
//
//	luabridge/           Environment, proxies, marshaller and operator dispatch
//	├── registry/        Handle and reference-slot arenas
//	└── errors/          Structured error types for debugging
//
// An Environment owns one interpreter instance plus two registries: a
// host-object table (handles the interpreter holds into the host heap) and
// a reference table (slots the host holds into the interpreter heap).
// Destroying the Environment invalidates every handle and proxy derived
// from it; handles are never valid across environments.
//
// # Quick Start
//
//	env, err := luabridge.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer env.Close()
//
//	env.Define("greet", luabridge.Func(func(args ...any) (any, error) {
//	    return "Hello, " + args[0].(string) + "!", nil
//	}))
//
//	results, err := env.Run(`return greet("World")`)
//	fmt.Println(results[0]) // "Hello, World!"
//
// # Host Objects
//
// Any host value without a scalar mapping is wrapped as userdata with a
// shared metatable. Scripts can then apply operators to it; each operator
// is translated to a capability interface call (Gettable, Settable,
// Callable, Lengthable, Comparable, Stringable, Arithmetic) on the host
// object. Objects implement whichever subset they support.
//
// # Proxies
//
// Lua tables and functions returned to the host arrive as *Table and
// *Function proxies. A proxy owns exactly one reference slot and must be
// released (or the environment closed) to free it. Proxy operations after
// Environment.Close fail with an environment_closed error.
//
// # Thread Safety
//
// The bridge is single-threaded and reentrant-but-serialized: host calls
// into the interpreter may re-enter host code through the dispatcher and
// vice versa, bounded only by stack depth. Concurrent use of one
// Environment from multiple goroutines without external locking is
// unsupported.
//
// # Finalization
//
// Host-object entries are removed when the interpreter's collector frees
// the wrapping userdata. Collection timing is not guaranteed; host code
// must not assume eager finalization.
package luabridge
