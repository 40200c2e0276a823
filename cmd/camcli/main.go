package main

import (
	"github.com/robotalks/camlink/pkg/cam/env"
	"github.com/robotalks/camlink/pkg/cli/sh"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
