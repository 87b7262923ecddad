package main

import (
	"github.com/robotalks/robo-console/pkg/cli/sh"
	"github.com/robotalks/robo-console/pkg/config"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
