package main

import (
	"os"

	"github.com/defistate/defistate-amm-go/cmd/console/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
