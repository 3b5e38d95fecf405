// Command statesqa answers questions about the COVID-19 history of US states
// by letting a language model call lookup tools over the states-history table.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(flagsErr.Message)
			return
		}
		fmt.Fprintf(os.Stderr, "statesqa: %v\n", err)
		os.Exit(1)
	}
}

// run parses args and executes the selected command
func run(args []string) error {
	_, err := newParser(&Options{}).ParseArgs(args)
	return err
}
