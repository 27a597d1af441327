package main

import (
	"fmt"
	"os"

	"github.com/trebuchet-org/conclave/internal/cli"
	"github.com/trebuchet-org/conclave/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	config.SetBuildFlags(version, commit, date)
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
