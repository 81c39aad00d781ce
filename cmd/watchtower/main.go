package main

import (
	"os"

	"github.com/fleetsight/watchtower/cmd/watchtower/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
