package main

import (
	"os"

	"github.com/rustyeddy/replaysim/cmd/replaysim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
