package main

import (
	"os"

	"github.com/prep-piper/interviewer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
