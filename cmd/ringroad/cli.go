package main

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/ringroad/nasch/pkg/core"
	"github.com/spf13/pflag"
)

// legacyArgs are the positional arguments of the original command line,
// in order. Booleans are true only for the literal "true".
var legacyArgs = []struct {
	flag    string
	boolean bool
}{
	{flag: "street-length"},
	{flag: "initial-cars"},
	{flag: "max-speed"},
	{flag: "iterations"},
	{flag: "dawdle"},
	{flag: "always-unlimited", boolean: true},
	{flag: "start-zero", boolean: true},
	{flag: "multicore", boolean: true},
}

const legacyUsage = "<street_length> <initial_cars> <vmax> <iterations> <dawdle_probability> <always_unlimited> <start_velocity_zero> <multicore>"

func newFlagSet(output io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "Usage: %s [flags]\n       %s %s\n\n", AppName, AppName, legacyUsage)
		fs.PrintDefaults()
	}

	fs.Int("street-length", 100, "number of cells on the ring road")
	fs.Int("initial-cars", 20, "number of vehicles placed at start")
	fs.Int("max-speed", core.UnlimitedSpeed, "speed limit, -1 for unlimited")
	fs.Int("iterations", 100, "number of ticks to simulate")
	fs.Float64("dawdle", 0.2, "probability that a moving vehicle slows down")
	fs.Bool("always-unlimited", false, "draw every vehicle's max speed from the top bracket")
	fs.Bool("start-zero", false, "vehicles start with speed 0")
	fs.Int("workers", 1, "number of road partitions updated in parallel")
	fs.Bool("multicore", false, "use one worker per CPU")
	fs.Int64("seed", 0, "random seed, 0 picks one")
	fs.String("config-dir", "", "directory containing "+configFileName()+" (default: executable directory)")
	fs.String("storage", "csv", "storage backend: csv, memory, sqlite, postgres, websocket")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	return fs
}

// parseArgs parses flags. A command line that starts with a positional
// argument is the original form and must carry exactly eight of them;
// "-1" for vmax would otherwise be read as a shorthand flag.
func parseArgs(args []string, output io.Writer) (*pflag.FlagSet, error) {
	fs := newFlagSet(output)

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if len(args) != len(legacyArgs) {
			return nil, fmt.Errorf("%w: expected %d positional arguments (%s), got %d",
				core.ErrConfiguration, len(legacyArgs), legacyUsage, len(args))
		}
		if err := fs.Parse(nil); err != nil {
			return nil, err
		}
		if err := applyLegacyArgs(fs, args); err != nil {
			return nil, err
		}
		return fs, nil
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected arguments after flags: %v", core.ErrConfiguration, fs.Args())
	}
	return fs, nil
}

func applyLegacyArgs(fs *pflag.FlagSet, args []string) error {
	for i, a := range legacyArgs {
		value := args[i]
		if a.boolean {
			value = fmt.Sprint(value == "true")
		}
		if err := fs.Set(a.flag, value); err != nil {
			return fmt.Errorf("%w: invalid argument %q for %s", core.ErrConfiguration, args[i], strings.ReplaceAll(a.flag, "-", "_"))
		}
	}
	return nil
}

// workerCount resolves --multicore. An explicit --workers wins.
func workerCount(fs *pflag.FlagSet, configured int) int {
	multicore, _ := fs.GetBool("multicore")
	if multicore && !fs.Changed("workers") {
		return runtime.NumCPU()
	}
	return configured
}
