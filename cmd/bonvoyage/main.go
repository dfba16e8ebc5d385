package main

import (
	"os"

	"github.com/moolen/bonvoyage/cmd/bonvoyage/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
