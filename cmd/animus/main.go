package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/animus-ai/animus/internal/cli"
)

func main() {
	// Optional .env for local development; absence is fine.
	godotenv.Load()

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
