package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	luabridge "github.com/wippyai/lua-bridge"
)

func main() {
	var (
		script      = flag.String("e", "", "Script source to execute")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose bridge logging")
		withDebug   = flag.Bool("debug", false, "Keep the debug library")
		withIO      = flag.Bool("io", false, "Keep the io library")
		withOS      = flag.Bool("os", false, "Keep the full os library")
		withLoad    = flag.Bool("loadfile", false, "Keep loadfile and dofile")
		withLoadLib = flag.Bool("loadlib", false, "Keep package.loadlib")
		withAll     = flag.Bool("all", false, "Disable sandboxing entirely")
	)
	flag.Parse()

	opts := buildOptions(*verbose, *withDebug, *withIO, *withOS, *withLoad, *withLoadLib, *withAll)

	// No work given and stdin is a terminal: default to interactive mode.
	if *script == "" && flag.NArg() == 0 && !*interactive {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			*interactive = true
		} else {
			fmt.Fprintln(os.Stderr, "Usage: luarun [-e script] [file ...]")
			fmt.Fprintln(os.Stderr, "       luarun -i  (interactive mode)")
			os.Exit(1)
		}
	}

	if *interactive {
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*script, flag.Args(), opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func buildOptions(verbose, withDebug, withIO, withOS, withLoad, withLoadLib, withAll bool) []luabridge.Option {
	var opts []luabridge.Option
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			opts = append(opts, luabridge.WithLogger(logger))
		}
	}
	if withDebug {
		opts = append(opts, luabridge.WithDebugLib())
	}
	if withIO {
		opts = append(opts, luabridge.WithIOLib())
	}
	if withOS {
		opts = append(opts, luabridge.WithOSLib())
	}
	if withLoad {
		opts = append(opts, luabridge.WithLoadFile())
	}
	if withLoadLib {
		opts = append(opts, luabridge.WithLoadLib())
	}
	if withAll {
		opts = append(opts, luabridge.WithAllLibs())
	}
	return opts
}

func run(script string, files []string, opts []luabridge.Option) error {
	env, err := luabridge.New(opts...)
	if err != nil {
		return fmt.Errorf("create environment: %w", err)
	}
	defer env.Close()

	if script != "" {
		results, err := env.Run(script)
		if err != nil {
			return err
		}
		printResults(results)
	}

	for _, file := range files {
		results, err := env.RunFile(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		printResults(results)
	}
	return nil
}

func printResults(results []any) {
	for _, r := range results {
		fmt.Println(formatValue(r))
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case *luabridge.Table:
		list, err := x.List()
		if err == nil && len(list) > 0 {
			return fmt.Sprintf("table%v", list)
		}
		m, err := x.Map()
		if err != nil {
			return "table"
		}
		return fmt.Sprintf("table%v", m)
	case *luabridge.Function:
		return "function"
	default:
		return fmt.Sprintf("%v", v)
	}
}
