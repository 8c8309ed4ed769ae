package cli

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"zipshelf/internal/model"
)

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	jsonOut := fs.Bool("json", false, "print JSON output")
	yamlOut := fs.Bool("yaml", false, "print YAML output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *jsonOut && *yamlOut {
		return errors.New("--json and --yaml are mutually exclusive")
	}

	records, err := stores.service().History()
	if err != nil {
		return err
	}
	switch {
	case *jsonOut:
		return printJSON(records)
	case *yamlOut:
		return printYAML(records)
	}

	if len(records) == 0 {
		fmt.Println("no archives in history")
		return nil
	}
	fmt.Println(renderHistoryTable(records))
	return nil
}

func renderHistoryTable(records []model.JobRecord) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.OutputName,
			defaultIfEmpty(r.CompletedAtText(), "-"),
			defaultIfEmpty(r.SourcePath, "(not recorded)"),
		})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ARCHIVE", "COMPLETED", "SOURCE").
		Rows(rows...).
		Render()
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	res := stores.service().Doctor()
	if *jsonOut {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		for _, c := range res.Checks {
			state := "ok"
			if !c.OK {
				state = "FAIL"
			}
			fmt.Printf("[%s] %s: %s\n", state, c.Name, c.Message)
		}
	}
	if !res.OK {
		return errors.New("doctor found problems")
	}
	return nil
}

func runPrune(args []string) error {
	fs := flag.NewFlagSet("prune", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	olderThan := fs.Duration("older-than", 30*24*time.Hour, "remove archives not modified within this duration")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := stores.service().Prune(*olderThan)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("cache: %s\n", res.Dir)
	fmt.Printf("removed: %d\n", len(res.Removed))
	for _, p := range res.Removed {
		fmt.Printf("  - %s\n", p)
	}
	fmt.Printf("kept: %d\n", res.Kept)
	if len(res.Skipped) > 0 {
		fmt.Printf("skipped (in use or not removable): %d\n", len(res.Skipped))
	}
	return nil
}
