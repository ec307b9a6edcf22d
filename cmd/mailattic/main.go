package main

import (
	"fmt"
	"os"

	"github.com/mailattic/mailattic/internal/cli"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 && isVersionArg(os.Args[1]) {
		fmt.Println(version)
		return
	}
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func isVersionArg(arg string) bool {
	switch arg {
	case "--version", "-v", "version":
		return true
	}
	return false
}
