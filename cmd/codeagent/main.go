// Package main provides the codeagent command: a queue worker that executes
// durable code-generation runs, plus commands to run or enqueue one by hand.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
