package main

import (
	"os"

	"memtool/cmd/memtool/cmds"
)

func main() {
	if err := cmds.New().Execute(); err != nil {
		os.Exit(1)
	}
}
