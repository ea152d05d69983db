// Package registry implements the two keyed stores behind the bridge.
//
// HostObjects gives the interpreter stable handles into the host heap: a
// handle is allocated when a host object is wrapped as userdata and removed
// exactly once when that userdata is collected. References gives the host
// stable slots into the interpreter heap: a slot is allocated when a table
// or function crosses to the host as a proxy and released when the proxy is.
//
// Both stores are free-list arenas indexed by a small integer rather than a
// raw address, so handle identity never depends on interpreter memory
// stability. Ids are unique within one environment for their lifetime and
// never valid across environments.
package registry
