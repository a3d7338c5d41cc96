package main

import (
	"os"

	"github.com/incidentlab/responder/cmd/responder/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
