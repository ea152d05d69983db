package luabridge

import (
	"github.com/wippyai/lua-bridge/errors"
)

// libraries selects which standard library subsets stay available to
// scripts. Everything is open when the interpreter starts; disabled
// subsets are removed by configuration scripts before user code runs.
type libraries struct {
	debug    bool
	io       bool
	os       bool
	loadFile bool
	loadLib  bool
	all      bool
}

// WithDebugLib keeps the debug library available.
func WithDebugLib() Option { return func(c *config) { c.libs.debug = true } }

// WithIOLib keeps the io library available.
func WithIOLib() Option { return func(c *config) { c.libs.io = true } }

// WithOSLib keeps the full os library available. Without it, scripts see
// only the side-effect-free subset (clock, date, difftime, time).
func WithOSLib() Option { return func(c *config) { c.libs.os = true } }

// WithLoadFile keeps loadfile and dofile available.
func WithLoadFile() Option { return func(c *config) { c.libs.loadFile = true } }

// WithLoadLib keeps package.loadlib available.
func WithLoadLib() Option { return func(c *config) { c.libs.loadLib = true } }

// WithAllLibs disables sandboxing entirely.
func WithAllLibs() Option { return func(c *config) { c.libs.all = true } }

// applySandbox removes the disabled standard library subsets by running
// restriction scripts, the hook point that also serves WithSetupScript.
func (e *Environment) applySandbox(libs libraries) error {
	if libs.all {
		return nil
	}

	steps := []struct {
		keep   bool
		name   string
		script string
	}{
		{libs.debug, "disable debug", `debug = nil`},
		{libs.loadLib, "disable loadlib", `package.loadlib = nil`},
		{libs.loadFile, "disable loadfile and dofile", `loadfile = nil dofile = nil`},
		{libs.os, "restrict os", `os = {clock = os.clock, date = os.date, difftime = os.difftime, time = os.time}`},
		{libs.io, "disable io", `io = nil`},
	}

	for _, step := range steps {
		if step.keep {
			continue
		}
		if err := e.state.DoString(step.script); err != nil {
			return errors.New(errors.PhaseRun, errors.KindRuntime).
				Path(step.name).
				Cause(err).
				Detail("sandbox configuration failed").
				Build()
		}
	}
	return nil
}
