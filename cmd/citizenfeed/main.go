package main

import (
	"os"

	"github.com/couchcryptid/citizen-feed-service/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
