package main

import (
	"RFind/internal"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"
)

const (
	exitRoot = 1
	exitArgs = 2
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "rfind",
		Usage:     "Recursively search files for a literal string",
		ArgsUsage: "[PATTERN] [EXTENSION]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "list",
				Aliases: []string{"l"},
				Usage:   "List files instead of searching them. PATTERN then filters file names. Wins over search mode",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"C"},
				Usage:   "Directory to search",
				Value:   ".",
				EnvVars: []string{"RFIND_ROOT"},
			},
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"j"},
				Usage:   "Max files scanned concurrently",
				Value:   internal.DefaultThreads,
				EnvVars: []string{"RFIND_THREADS"},
			},
			&cli.IntFlag{
				Name:  "queue",
				Usage: "Walker queue capacity (default 2x threads)",
			},
			&cli.IntFlag{
				Name:  "depth",
				Usage: "Max directory depth (0 - unlimited)",
			},
			&cli.StringFlag{
				Name:    "highlight",
				Usage:   "Match marker: auto, underline, bold, color, none. auto underlines on a terminal and prints plain lines when stdout is piped or the format is json/yaml",
				Value:   string(internal.StyleAuto),
				EnvVars: []string{"RFIND_HIGHLIGHT"},
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Report format: text, json, yaml",
				Value: string(internal.FormatText),
			},
			&cli.BoolFlag{
				Name:  "archives",
				Usage: "Also search files inside archives (.zip,.tar,.gz,.7z,...)",
			},
			&cli.DurationFlag{
				Name:  "file-timeout",
				Usage: "Give up on a single file after this long (e.g. 5s)",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Global timeout; partial results are reported (e.g. 10m)",
			},
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a spinner on stderr",
			},
			&cli.StringFlag{
				Name:    "logfile",
				Usage:   "Write logs into file instead of stderr",
				EnvVars: []string{"RFIND_LOGFILE"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level: debug, info, warn, error",
				Value:   "warn",
				EnvVars: []string{"RFIND_LOG_LEVEL"},
			},
		},
		Action: run,
	}
}

// positional splits what urfave/cli left unparsed. Flags stop at the first
// positional argument, so a trailing --list still counts and any other
// trailing flag is an argument error.
func positional(c *cli.Context) (args []string, list bool, err error) {
	known := map[string]bool{}
	for _, f := range c.App.Flags {
		for _, name := range f.Names() {
			known[name] = true
		}
	}

	list = c.Bool("list")
	rest := false
	for _, a := range c.Args().Slice() {
		if rest || !strings.HasPrefix(a, "-") {
			args = append(args, a)
			continue
		}
		if a == "--" {
			rest = true
			continue
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		switch {
		case !known[name]:
			// a pattern that starts with a dash
			args = append(args, a)
		case name == "list" || name == "l":
			on := true
			if hasValue {
				if on, err = strconv.ParseBool(value); err != nil {
					return nil, false, argError(fmt.Errorf("invalid value %q for flag %s", value, a))
				}
			}
			list = list || on
		default:
			return nil, false, argError(fmt.Errorf("flag %s must come before PATTERN", a))
		}
	}
	if len(args) > 2 {
		return nil, false, argError(fmt.Errorf("unexpected argument %q, expected [PATTERN] [EXTENSION]", args[2]))
	}
	return args, list, nil
}

func argError(err error) error {
	return &internal.SearchError{Kind: internal.ArgumentError, Err: err}
}

func run(c *cli.Context) error {
	internal.InitLogger(c.String("logfile"), c.String("log-level"))

	args, list, err := positional(c)
	if err != nil {
		return exitFor(err)
	}
	stdout, stderr := c.App.Writer, c.App.ErrWriter

	// ctx with timeout + OS signals
	base := context.Background()
	var cancel context.CancelFunc
	if t := c.Duration("timeout"); t > 0 {
		base, cancel = context.WithTimeout(base, t)
	} else {
		base, cancel = context.WithCancel(base)
	}
	defer cancel()

	ctx, stop := signal.NotifyContext(base, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	style, err := internal.ParseStyle(c.String("highlight"))
	if err != nil {
		return cli.Exit(err.Error(), exitArgs)
	}
	format := internal.Format(c.String("format"))
	if style == internal.StyleAuto && format != internal.FormatText {
		style = internal.StyleNone
	}

	// auto stays plain unless stdout is a terminal
	term, _ := stdout.(*os.File)
	opts := internal.ScanOptions{
		Root:        c.String("root"),
		Highlight:   style.Resolve(term),
		Threads:     c.Int("threads"),
		Queue:       c.Int("queue"),
		Depth:       c.Int("depth"),
		Archives:    c.Bool("archives"),
		FileTimeout: c.Duration("file-timeout"),
		Format:      format,
		List:        list,
		Progress:    c.Bool("progress"),
	}
	if len(args) > 0 {
		opts.Pattern = args[0]
	}
	if len(args) > 1 {
		opts.Extension = args[1]
	}
	fs := afero.NewOsFs()

	if opts.List {
		n, err := internal.ListFiles(ctx, fs, opts, stdout, stderr)
		if err != nil {
			return exitFor(err)
		}
		logrus.Infof("Listed %d files", n)
		return nil
	}

	rep, err := internal.NewFileScanner(fs, stderr).Scan(ctx, opts)
	if err != nil {
		return exitFor(err)
	}
	if err := internal.NewReporter(stdout, opts.Format).Render(rep.Results); err != nil {
		return cli.Exit("write report: "+err.Error(), exitRoot)
	}
	if rep.Partial {
		logrus.Warnf("Results are partial: %d files scanned before the search stopped", rep.Stats.FilesScanned)
	}
	return nil
}

func exitFor(err error) error {
	if internal.KindOf(err) == internal.ArgumentError {
		return cli.Exit(err.Error(), exitArgs)
	}
	return cli.Exit(err.Error(), exitRoot)
}
