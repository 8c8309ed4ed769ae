package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"zipshelf/internal/archive"
	"zipshelf/internal/jobs"
)

const (
	uiAuto = "auto"
	uiTUI  = "tui"
	uiLine = "line"
	uiNone = "none"
)

func runZip(args []string) error {
	fs := flag.NewFlagSet("zip", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	ui := fs.String("ui", uiAuto, "progress display: auto|tui|line|none")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	sources := fs.Args()
	if len(sources) == 0 {
		fs.Usage()
		return errors.New("at least one source directory is required")
	}
	mode, err := resolveUIMode(*ui, *jsonOut)
	if err != nil {
		return err
	}

	svc := serviceForUI(stores, mode)
	outcomes := make([]jobs.Outcome, 0, len(sources))
	for i, src := range sources {
		label := filepath.Base(filepath.Clean(src)) + ".zip"
		out, err := compressWithUI(mode, i+1, len(sources), label, func(obs archive.Observer) (jobs.Outcome, error) {
			return svc.Compress(src, obs)
		})
		if err != nil {
			return fmt.Errorf("zip %s: %w", src, err)
		}
		outcomes = append(outcomes, out)
		if !*jsonOut {
			printOutcome(out)
		}
	}
	if *jsonOut {
		return printJSON(outcomes)
	}
	return nil
}

func runRecompress(args []string) error {
	fs := flag.NewFlagSet("recompress", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	ui := fs.String("ui", uiAuto, "progress display: auto|tui|line|none")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("exactly one archive name is required (see: zipshelf history)")
	}
	name := strings.TrimSpace(fs.Arg(0))
	mode, err := resolveUIMode(*ui, *jsonOut)
	if err != nil {
		return err
	}

	svc := serviceForUI(stores, mode)
	out, err := compressWithUI(mode, 1, 1, name, func(obs archive.Observer) (jobs.Outcome, error) {
		return svc.Recompress(name, obs)
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(out)
	}
	printOutcome(out)
	return nil
}

func resolveUIMode(raw string, jsonOut bool) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case uiAuto:
		if jsonOut || !stdoutIsTTY() {
			return uiNone, nil
		}
		return uiTUI, nil
	case uiTUI, uiLine, uiNone:
		return mode, nil
	default:
		return "", fmt.Errorf("--ui must be one of auto|tui|line|none, got %q", raw)
	}
}

func serviceForUI(stores storeFlags, mode string) *jobs.Service {
	if mode == uiTUI {
		return stores.serviceWithLogger(stores.tuiLogger())
	}
	return stores.service()
}

func compressWithUI(mode string, index, total int, label string, run func(archive.Observer) (jobs.Outcome, error)) (jobs.Outcome, error) {
	switch mode {
	case uiTUI:
		return runWithProgressProgram(label, run)
	case uiLine:
		lp := archive.NewLiveProgress(os.Stdout, index, total, label)
		lp.Start()
		out, err := run(lp)
		if err != nil {
			lp.Stop("failed: " + label)
			return out, err
		}
		lp.Stop("done: " + label)
		return out, nil
	default:
		return run(nil)
	}
}

func printOutcome(out jobs.Outcome) {
	verb := "updated"
	if out.Created {
		verb = "created"
	}
	fmt.Printf("output: %s\n", out.Result.Job.OutputPath)
	fmt.Printf("source: %s\n", out.Record.SourcePath)
	fmt.Printf("files: %d\n", out.Result.Job.ProcessedFileCount)
	fmt.Printf("size: %s (from %s)\n", formatBytesIEC(out.Result.CompressedBytes), formatBytesIEC(out.Result.Job.TotalBytes))
	fmt.Printf("completed_at: %s\n", out.Record.CompletedAtText())
	fmt.Printf("history: %s %s\n", verb, out.Record.OutputName)
}
