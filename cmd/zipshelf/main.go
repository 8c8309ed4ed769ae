package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"zipshelf/internal/cli"
)

func main() {
	// A missing .env is fine; ZIPSHELF_* may come from the real environment.
	_ = godotenv.Load()
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
