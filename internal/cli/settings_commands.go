package cli

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"zipshelf/internal/settings"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	store := stores.settingsStore(stores.logger())
	cfg, err := store.Snapshot()
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"settings_path": store.Path(),
			"settings":      cfg,
		})
	}

	fmt.Printf("settings: %s\n", store.Path())
	fmt.Printf("cache_path: %s\n", defaultIfEmpty(cfg.CachePath, "(not set)"))
	fmt.Printf("window: %dx%d\n", cfg.WindowWidth, cfg.WindowHeight)
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	stores := addStoreFlags(fs)
	cachePath := fs.String("cache-path", "", "directory that receives new archives (\"\" clears it)")
	window := fs.String("window", "", "window geometry WIDTHxHEIGHT")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	given := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { given[f.Name] = true })
	if !given["cache-path"] && !given["window"] {
		fs.Usage()
		return errors.New("set --cache-path or --window")
	}

	store := stores.settingsStore(stores.logger())
	if given["cache-path"] {
		if err := store.SetCachePath(*cachePath); err != nil {
			return err
		}
	}
	if given["window"] {
		w, h, err := parseGeometry(strings.TrimSpace(*window))
		if err != nil {
			return err
		}
		if err := store.SetWindowSize(w, h); err != nil {
			return err
		}
	}

	cfg, err := store.Snapshot()
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"settings_path": store.Path(),
			"settings":      cfg,
		})
	}
	fmt.Printf("updated settings in %s\n", store.Path())
	fmt.Printf("cache_path: %s\n", defaultIfEmpty(cfg.CachePath, "(not set)"))
	fmt.Printf("window: %dx%d\n", cfg.WindowWidth, cfg.WindowHeight)
	return nil
}

// parseGeometry reads WIDTHxHEIGHT. Values are stored as given; zero and
// negative sizes are accepted.
func parseGeometry(raw string) (int, int, error) {
	wRaw, hRaw, ok := strings.Cut(strings.ToLower(raw), "x")
	if !ok {
		return 0, 0, fmt.Errorf("--window must look like 550x900, got %q", raw)
	}
	w, err := strconv.Atoi(strings.TrimSpace(wRaw))
	if err != nil {
		return 0, 0, fmt.Errorf("--window width %q is not an integer", wRaw)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hRaw))
	if err != nil {
		return 0, 0, fmt.Errorf("--window height %q is not an integer", hRaw)
	}
	return w, h, nil
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  settings show")
	fmt.Printf("  settings set [--cache-path <dir>] [--window %dx%d]\n", settings.DefaultWindowWidth, settings.DefaultWindowHeight)
}
