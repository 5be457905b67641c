package main

import (
	"os"

	"github.com/DmtiriyK/Job-finder-V2/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
