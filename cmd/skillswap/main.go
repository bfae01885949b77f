package main

import (
	"os"

	"github.com/okian/skillswap/cmd/skillswap/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
