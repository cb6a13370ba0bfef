package main

import (
	"os"

	"github.com/buildregs/ragagent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
