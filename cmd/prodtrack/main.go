package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/example/prodtrack/internal/cli"
	"github.com/example/prodtrack/internal/version"
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	rootCmd := cli.RootCmd(version.String())
	if err := rootCmd.Execute(); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}
