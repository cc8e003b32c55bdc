// x1-mint runs the mint initializer program against a local accounts store.
//
// It can allocate and initialize mint accounts from the command line, inspect
// them, snapshot the store, and serve everything over HTTP.
package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("x1-mint failed")
		os.Exit(1)
	}
}
