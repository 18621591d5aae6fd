package main

import (
	"os"

	"github.com/danieljhkim/packsmith/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		cli.ReportError(err)
		os.Exit(1)
	}
}
