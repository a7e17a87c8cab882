package main

import (
	"io"
	"os"

	svgbob "github.com/alnah/pandoc-svgbob"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Runner svgbob.CommandRunner // nil runs the renderer as a subprocess
}

// DefaultEnv returns the process environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}
