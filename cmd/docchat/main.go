// Command docchat is the entry point for the document chat assistant.
// It provides a CLI (via Cobra) for ingesting documents and asking
// questions, plus an HTTP server that streams grounded answers.
package main

import (
	"fmt"
	"os"

	"github.com/docchat/docchat-go/cmd/docchat/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
