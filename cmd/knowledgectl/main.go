package main

import (
	"os"

	"github.com/akolanti/knowledgecore/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
