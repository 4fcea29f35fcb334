// Command dialerctl is the operator and cron entry point for the dialer.
package main

import (
	"os"

	"dialer-platform/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
