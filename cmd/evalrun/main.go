package main

import (
	"os"

	"go-eval-harness/pkg/logging"
)

func main() {
	err := rootCmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
