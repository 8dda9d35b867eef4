package main

import (
	"os"

	"github.com/gridline-app/gridline/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
