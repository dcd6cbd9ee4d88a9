package main

import (
	"fmt"
	"os"

	"github.com/sysupdate-systems/updated/internal/updatectl"
)

func main() {
	if err := updatectl.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
