package main

import (
	"os"

	"github.com/xupit3r/gpujpeg/cmd/gpujpeg/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
