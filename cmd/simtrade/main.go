package main

import (
	"os"

	"simtrade/cmd/simtrade/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
