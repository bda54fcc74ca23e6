package main

import (
	"github.com/fabvit86/jsonnet-go/cmd"
	_ "github.com/fabvit86/jsonnet-go/std"
)

var version = "v0.1.0"

func main() {
	cmd.Execute(version)
}
