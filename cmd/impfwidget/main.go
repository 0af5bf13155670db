package main

import (
	"fmt"
	"io"
	"os"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitFetchFailed  = 3
	ExitStorageError = 4
)

// Output streams, replaced in tests.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "render":
		return runRender(cmdArgs)
	case "fetch":
		return runFetch(cmdArgs)
	case "serve":
		return runServe(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(stderr, `Usage: impfwidget <command> [options]

Commands:
  render    Fetch the vaccination feed and draw the widget
  fetch     Fetch the vaccination feed and print the snapshot as JSON
  serve     Serve the widget and snapshot over HTTP

Configuration is read from -config (YAML), .env and IMPFWIDGET_* variables.
Run 'impfwidget <command> -h' for command-specific help.`)
}
