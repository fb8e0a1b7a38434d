// Idiomatic entrypoint for the Cobra CLI that delegates handling to the Cobra root command in cmd/root.go

package main

import (
	"github.com/a-ma72/rainflow-sub002/cmd"
)

func main() {
	cmd.Execute()
}
