package main

import (
	"fmt"
	"os"

	"github.com/basalt-data/stubgen/cmd/stubgen/commands"
	"github.com/basalt-data/stubgen/logger"
)

func main() {
	err := commands.RootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
