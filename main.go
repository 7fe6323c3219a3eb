package main

import (
	"os"

	"github.com/rtzll/tubeagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
