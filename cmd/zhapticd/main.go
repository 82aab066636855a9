// Command zhapticd runs the haptic feedback daemon.
package main

import (
	"os"

	"github.com/evan-idocoding/zhaptic/internal/cli"
)

// Version is stamped at link time: -ldflags "-X main.Version=v1.0.0".
var Version = "dev"

func main() {
	if err := cli.Execute(Version); err != nil {
		os.Exit(1)
	}
}
