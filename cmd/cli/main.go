package main

import (
	"os"

	"github.com/vector-skill/academy/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
