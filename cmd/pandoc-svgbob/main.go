package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	ctx, stop := notifyContext(context.Background())
	code := run(ctx, os.Args, DefaultEnv())
	stop()
	os.Exit(code)
}

// notifyContext returns a context that is canceled on interrupt or
// termination. Windows never delivers SIGTERM, so there only Ctrl-C counts.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// run dispatches to a command and returns the process exit code.
//
// Pandoc calls a JSON filter with the target format as its only argument,
// so anything that is not a command name runs the filter.
func run(ctx context.Context, args []string, env *Environment) int {
	var cmd string
	if len(args) > 1 {
		cmd = args[1]
	}

	var err error
	switch cmd {
	case "preview":
		err = runPreview(ctx, args[2:], env)
	case "doctor":
		return runDoctorCmd(args[2:], env)
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "pandoc-svgbob %s\n", Version)
		return ExitSuccess
	case "help", "-h", "--help":
		runHelp(args[2:], env)
		return ExitSuccess
	default:
		var rest []string
		if len(args) > 1 {
			rest = args[1:]
		}
		err = runFilter(ctx, rest, env)
	}

	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		fmt.Fprintf(env.Stderr, "pandoc-svgbob: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}
	return ExitSuccess
}
