package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "zip":
		return runZip(args[1:])
	case "recompress":
		return runRecompress(args[1:])
	case "history":
		return runHistory(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "browse":
		return runBrowse(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "prune":
		return runPrune(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("zipshelf: archive directories into a zip cache and keep a history of them")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  zipshelf settings set --cache-path <dir>")
	fmt.Println("  zipshelf zip <dir> [<dir>...]")
	fmt.Println("  zipshelf history")
	fmt.Println("  zipshelf recompress <name.zip>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  zip         archive one or more directories into the cache directory")
	fmt.Println("  recompress  re-archive a history entry from its recorded source")
	fmt.Println("  history     list completed archives")
	fmt.Println("  settings    show/update the cache path and window geometry")
	fmt.Println("  browse      interactive history browser")
	fmt.Println("  doctor      check settings, history and cache directory")
	fmt.Println("  prune       remove old archives from the cache directory")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - --settings/--history (or ZIPSHELF_SETTINGS/ZIPSHELF_HISTORY) choose the state files")
	fmt.Println("  - --verbose or DEBUG=1 enables debug logs on stderr")
}
