// Package main is the entry point for the chartscrape CLI.
package main

import (
	"os"

	"github.com/jmylchreest/chartscrape/cmd/chartscrape/commands"
)

func main() {
	os.Exit(commands.ExitCode(commands.Execute()))
}
