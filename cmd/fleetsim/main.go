package main

import (
	"os"

	"github.com/skovsen/D2D_CleanerLogic/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
