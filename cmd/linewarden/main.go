package main

import (
	"os"

	"github.com/solatis/linewarden/cmd/linewarden/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
