package main

import (
	"os"

	"github.com/rustyeddy/optback/cmd/optback/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
