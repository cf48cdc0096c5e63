package main

import (
	"fmt"
	"os"

	"github.com/nconklindev/sift/internal/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	info := commands.BuildInfo{Version: version, Commit: commit, Date: date}
	if err := commands.Execute(info); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
