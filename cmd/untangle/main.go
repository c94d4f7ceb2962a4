package main

import (
	"os"
	"untangle/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
