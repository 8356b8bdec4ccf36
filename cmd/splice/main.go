package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

const (
	exitFailure = 1
	// exitInvalidInput marks a rejected intent or malformed rational time.
	exitInvalidInput = 2
)

// kindedError is implemented by typed errors that classify themselves.
type kindedError interface {
	ErrorKind() string
}

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var kinded kindedError
	if errors.As(err, &kinded) && kinded.ErrorKind() == "validation" {
		return exitInvalidInput
	}
	return exitFailure
}
