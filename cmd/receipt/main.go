package main

import (
	"os"

	"github.com/dmitrijs2005/gophwallet/internal/cli"
)

func main() {
	os.Exit(cli.NewApp(os.Stdin, os.Stdout).Run(os.Args[1:]))
}
