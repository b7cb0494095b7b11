package main

import (
	"os"

	"github.com/semmy-space/credstore/internal/cli"
	"github.com/semmy-space/credstore/internal/secrets"
)

var (
	version = "dev"
)

func main() {
	// Adapters are registered once, before any store is opened
	provider := secrets.NewProvider()

	os.Exit(cli.Execute(os.Args[1:], cli.Options{
		Version:  version,
		Provider: provider,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	}))
}
