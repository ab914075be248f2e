package main

import (
	"os"

	"github.com/surfbox-dev/surfbox/cmd"
	"github.com/surfbox-dev/surfbox/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
