package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/dmyersturnbull/tyranno-sandbox/cmd/tyranno"
)

func main() {
	rootCmd := tyranno.NewRootCmd()

	err := doc.GenMan(rootCmd, tyranno.ManHeader(), os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
