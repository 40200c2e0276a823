package main

//go-build: CGO_ENABLED=0

import (
	"flag"

	"github.com/robotalks/camlink/pkg/daemon"
	fx "github.com/robotalks/camlink/pkg/framework"
)

func init() {
	daemon.SetupFlags()
}

func main() {
	flag.Parse()

	d := daemon.NewConfig().MustNewDaemon()
	fx.NewRunner().HandleSignals().Go(d).WaitOrFail()
}
