package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/dmyersturnbull/tyranno-sandbox/cmd/tyranno"
	"github.com/dmyersturnbull/tyranno-sandbox/pkg/errors"
)

func main() {
	rootCmd := tyranno.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// Print the error in red
		errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
		msg := err.Error()
		if coded, ok := errors.Find(err); ok && coded == err {
			msg = coded.Describe()
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+msg))
		os.Exit(1)
	}
}
