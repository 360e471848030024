package main

import (
	"github.com/lanternsec/lantern/cmd"
)

func main() {
	cmd.Execute()
}
