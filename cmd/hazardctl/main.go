// Package main is the entry point for the hazardctl operator tool.
package main

import (
	"os"

	"github.com/mr1hm/hazard-monitor/cmd/hazardctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
