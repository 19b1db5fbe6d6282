package main

import (
	"os"

	"github.com/xzhou2018/FleetSim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
