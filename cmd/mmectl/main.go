package main

import (
	"os"

	"github.com/drfirst/go-mme/internal/cli"
)

// set via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cli.SetVersion(version)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
