package main

import (
	"os"
	"runtime/debug"

	"github.com/fortis-labs/fortis/cmd"
	"github.com/fortis-labs/fortis/logx"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			_ = logx.Errorf("FORTIS CRASHED: %v\n%s", r, debug.Stack())
			os.Exit(1)
		}
	}()

	cmd.Execute()
}
