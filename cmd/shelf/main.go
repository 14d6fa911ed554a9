package main

import (
	"os"

	"github.com/MrSnakeDoc/shelf/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}
