// Command kasbook works on the same book as the server from a terminal.
package main

import (
	"fmt"
	"os"

	"kasbook/backend/internal/logger"
)

func main() {
	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		log := logger.WithComponent("cmd")
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
