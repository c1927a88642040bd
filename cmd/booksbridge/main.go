package main

import (
	"os"

	"github.com/booksbridge/booksbridge/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
