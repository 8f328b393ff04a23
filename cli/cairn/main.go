package main

import (
	"os"

	cairncmder "github.com/cairnforensics/cairn/cmd/cairn"
)

func main() {
	cmd := cairncmder.NewCairnCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
