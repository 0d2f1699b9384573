package main

import (
	"github.com/haskel/vitals/internal/cli"
)

// Set with -ldflags "-X main.version=..." at release time.
var (
	version = "0.1.0"
)

func main() {
	cli.SetVersion(version)
	cli.Execute()
}
